package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"status", status.Error(codes.Unavailable, "down"), codes.Unavailable},
		{"wrapped status", fmt.Errorf("2 of 3 events failed, first: %w", status.Error(codes.PermissionDenied, "no")), codes.PermissionDenied},
		{"request error", &RequestError{Op: "state", Code: codes.InvalidArgument, Err: fmt.Errorf("x")}, codes.InvalidArgument},
		{"plain", fmt.Errorf("boom"), codes.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if got := Wrap("connect", "localhost:8081", nil); got != nil {
		t.Fatalf("Wrap(nil) = %v, want nil", got)
	}

	inner := status.Error(codes.Unavailable, "connection refused")
	err := Wrap("connect", "localhost:8081", inner)
	var re *RequestError
	if !stderrors.As(err, &re) {
		t.Fatalf("Wrap returned %T, want *RequestError", err)
	}
	if re.Op != "connect" || re.Server != "localhost:8081" || re.Code != codes.Unavailable {
		t.Errorf("unexpected fields: %+v", re)
	}
	if !stderrors.Is(err, inner) {
		t.Error("wrapped error should unwrap to the original")
	}
	if again := Wrap("state", "other", err); again != err {
		t.Error("a RequestError should not be wrapped twice")
	}
}

func TestRequestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			Wrap("range", "localhost:8081", status.Error(codes.InvalidArgument, "range value 150 is outside [0, 100]")),
			"range on localhost:8081: invalid argument: range value 150 is outside [0, 100]",
		},
		{
			Wrap("state", "localhost:8081", context.DeadlineExceeded),
			"state on localhost:8081: timed out: context deadline exceeded",
		},
		{
			Wrap("state", "localhost:8081", fmt.Errorf("decode failed")),
			"state on localhost:8081 failed: decode failed",
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsTimeoutAndPermanent(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		timeout   bool
		permanent bool
	}{
		{"nil", nil, false, false},
		{"local deadline", context.DeadlineExceeded, true, false},
		{"remote deadline", status.Error(codes.DeadlineExceeded, "slow"), true, false},
		{"unavailable", status.Error(codes.Unavailable, "down"), false, false},
		{"rejected", status.Error(codes.PermissionDenied, "rejected"), false, true},
		{"unimplemented", Wrap("watch", "x", status.Error(codes.Unimplemented, "")), false, true},
		{"plain", fmt.Errorf("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTimeout(tt.err); got != tt.timeout {
				t.Errorf("IsTimeout = %v, want %v", got, tt.timeout)
			}
			if got := Permanent(tt.err); got != tt.permanent {
				t.Errorf("Permanent = %v, want %v", got, tt.permanent)
			}
		})
	}
}
