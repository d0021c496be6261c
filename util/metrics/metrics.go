package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamEventsTotal counts values emitted by each recorded stream
	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgraph_stream_events_total",
			Help: "Total number of values recorded per stream",
		},
		[]string{"stream"},
	)

	// TimelineEntries tracks the number of retained entries per timeline
	TimelineEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgraph_timeline_entries",
			Help: "Number of entries currently retained in each stream timeline",
		},
		[]string{"stream"},
	)

	// UIEventsTotal counts user interactions by kind and transport
	UIEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgraph_ui_events_total",
			Help: "Total number of UI events received, by kind and transport",
		},
		[]string{"kind", "transport"},
	)

	// TickSwitchesTotal counts tick interval starts and stops
	TickSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamgraph_tick_switches_total",
			Help: "Total number of tick interval transitions",
		},
		[]string{"state"},
	)

	// TickActive is 1 while the tick interval runs
	TickActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgraph_tick_active",
			Help: "Whether the tick interval is currently running (1) or paused (0)",
		},
	)

	// StaleTicksDropped counts ticks discarded because their interval was cancelled
	StaleTicksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamgraph_stale_ticks_dropped_total",
			Help: "Total number of ticks dropped after their interval was cancelled",
		},
	)

	// RenderStateVersion is the version of the last published render state
	RenderStateVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamgraph_render_state_version",
			Help: "Version of the most recently published render state",
		},
	)

	// Subscribers tracks connected render state subscribers by transport
	Subscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "streamgraph_subscribers",
			Help: "Number of connected render state subscribers",
		},
		[]string{"transport"},
	)
)

// RecordStreamEvent increments the event counter of a stream and sets its
// retained timeline length
func RecordStreamEvent(stream string, retained int) {
	StreamEventsTotal.WithLabelValues(stream).Inc()
	TimelineEntries.WithLabelValues(stream).Set(float64(retained))
}

// RecordUIEvent increments the UI event counter
func RecordUIEvent(kind, transport string) {
	if transport == "" {
		transport = "internal"
	}
	UIEventsTotal.WithLabelValues(kind, transport).Inc()
}

// RecordTickSwitch records a tick interval transition
func RecordTickSwitch(active bool) {
	if active {
		TickSwitchesTotal.WithLabelValues("running").Inc()
		TickActive.Set(1)
		return
	}
	TickSwitchesTotal.WithLabelValues("paused").Inc()
	TickActive.Set(0)
}

// RecordStaleTick increments the dropped tick counter
func RecordStaleTick() {
	StaleTicksDropped.Inc()
}

// SetRenderStateVersion records the latest published render state version
func SetRenderStateVersion(version uint64) {
	RenderStateVersion.Set(float64(version))
}

// RecordSubscriberConnected increments the subscriber gauge of a transport
func RecordSubscriberConnected(transport string) {
	Subscribers.WithLabelValues(transport).Inc()
}

// RecordSubscriberDisconnected decrements the subscriber gauge of a transport
func RecordSubscriberDisconnected(transport string) {
	Subscribers.WithLabelValues(transport).Dec()
}
