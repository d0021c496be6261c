package callcontext

import (
	"context"
	"testing"
	"time"
)

type otherKey struct{}

func TestClientID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		wantFrom bool
		wantID   string
	}{
		{"absent", context.Background(), false, ""},
		{"set", WithClientID(context.Background(), "http/127.0.0.1:53012"), true, "http/127.0.0.1:53012"},
		{"empty", WithClientID(context.Background(), ""), true, ""},
		{
			"derived",
			context.WithValue(WithClientID(context.Background(), "ws/ws-1"), otherKey{}, "x"),
			true, "ws/ws-1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromClient(tt.ctx); got != tt.wantFrom {
				t.Errorf("FromClient() = %v, want %v", got, tt.wantFrom)
			}
			if got := ClientID(tt.ctx); got != tt.wantID {
				t.Errorf("ClientID() = %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestClientIDIsolation(t *testing.T) {
	parent := context.Background()
	child := WithClientID(parent, "grpc/127.0.0.1:40000")
	if FromClient(parent) {
		t.Error("parent context should not see the child's client ID")
	}
	if !FromClient(child) {
		t.Error("child context should carry the client ID")
	}
}

func TestWithDefaultTimeout(t *testing.T) {
	ctx, cancel := WithDefaultTimeout(context.Background(), 5*time.Second)
	defer cancel()
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if d := time.Until(deadline); d <= 4*time.Second || d > 5*time.Second {
		t.Errorf("deadline in %v, want about 5s", d)
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	want, _ := parent.Deadline()
	ctx, cancel = WithDefaultTimeout(parent, time.Minute)
	got, _ := ctx.Deadline()
	if !got.Equal(want) {
		t.Errorf("existing deadline replaced: got %v, want %v", got, want)
	}
	cancel()
	cancel()
	if parent.Err() != nil {
		t.Error("cancel must not cancel a context with an existing deadline")
	}
}
