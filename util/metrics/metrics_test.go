package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	streamtestutil "github.com/xiaonanln/streamgraph/util/testutil"
)

func TestRecordStreamEvent(t *testing.T) {
	streamtestutil.LockMetrics(t)
	StreamEventsTotal.Reset()
	TimelineEntries.Reset()

	RecordStreamEvent("ticks", 1)
	RecordStreamEvent("ticks", 2)
	RecordStreamEvent("pauses", 1)

	if got := testutil.ToFloat64(StreamEventsTotal.WithLabelValues("ticks")); got != 2.0 {
		t.Errorf("Expected ticks events to be 2.0, got %f", got)
	}
	if got := testutil.ToFloat64(TimelineEntries.WithLabelValues("ticks")); got != 2.0 {
		t.Errorf("Expected ticks entries to be 2.0, got %f", got)
	}
	if got := testutil.ToFloat64(StreamEventsTotal.WithLabelValues("pauses")); got != 1.0 {
		t.Errorf("Expected pauses events to be 1.0, got %f", got)
	}
}

func TestRecordUIEventDefaultsTransport(t *testing.T) {
	streamtestutil.LockMetrics(t)
	UIEventsTotal.Reset()

	RecordUIEvent("connect", "")
	RecordUIEvent("connect", "http")

	if got := testutil.ToFloat64(UIEventsTotal.WithLabelValues("connect", "internal")); got != 1.0 {
		t.Errorf("Expected internal connect to be 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(UIEventsTotal.WithLabelValues("connect", "http")); got != 1.0 {
		t.Errorf("Expected http connect to be 1.0, got %f", got)
	}
}

func TestRecordTickSwitch(t *testing.T) {
	streamtestutil.LockMetrics(t)
	TickSwitchesTotal.Reset()

	RecordTickSwitch(true)
	if got := testutil.ToFloat64(TickActive); got != 1.0 {
		t.Errorf("Expected TickActive 1.0 after start, got %f", got)
	}
	RecordTickSwitch(false)
	if got := testutil.ToFloat64(TickActive); got != 0.0 {
		t.Errorf("Expected TickActive 0.0 after stop, got %f", got)
	}
	if got := testutil.ToFloat64(TickSwitchesTotal.WithLabelValues("running")); got != 1.0 {
		t.Errorf("Expected 1 running transition, got %f", got)
	}
	if got := testutil.ToFloat64(TickSwitchesTotal.WithLabelValues("paused")); got != 1.0 {
		t.Errorf("Expected 1 paused transition, got %f", got)
	}
}

func TestSubscribers(t *testing.T) {
	streamtestutil.LockMetrics(t)
	Subscribers.Reset()

	RecordSubscriberConnected("sse")
	RecordSubscriberConnected("sse")
	RecordSubscriberDisconnected("sse")

	if got := testutil.ToFloat64(Subscribers.WithLabelValues("sse")); got != 1.0 {
		t.Errorf("Expected 1 sse subscriber, got %f", got)
	}
}

func TestStaleTicksAndVersion(t *testing.T) {
	streamtestutil.LockMetrics(t)

	before := testutil.ToFloat64(StaleTicksDropped)
	RecordStaleTick()
	if got := testutil.ToFloat64(StaleTicksDropped); got != before+1 {
		t.Errorf("Expected stale ticks %f, got %f", before+1, got)
	}

	SetRenderStateVersion(42)
	if got := testutil.ToFloat64(RenderStateVersion); got != 42 {
		t.Errorf("Expected version 42, got %f", got)
	}
}
