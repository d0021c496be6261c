// Package callcontext carries per-request caller information through a
// context.Context, from the transport handler down to the explorer.
package callcontext

import (
	"context"
	"time"
)

type contextKey int

const (
	clientIDKey contextKey = iota
)

// WithClientID returns a new context carrying the caller's client ID.
// clientID format: "transport/identity" (e.g., "http/127.0.0.1:53012", "ws/ws-<uuid>")
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// ClientID returns the client ID stored in ctx, or "" if there is none.
func ClientID(ctx context.Context) string {
	if clientID, ok := ctx.Value(clientIDKey).(string); ok {
		return clientID
	}
	return ""
}

// FromClient reports whether ctx carries a client ID.
func FromClient(ctx context.Context) bool {
	return ctx.Value(clientIDKey) != nil
}

// WithDefaultTimeout applies timeout to ctx unless it already has a deadline.
// The returned cancel is always safe to call.
func WithDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
