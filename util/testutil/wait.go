package testutil

import (
	"testing"
	"time"
)

// pollInterval is short: most conditions wait for one explorer loop round
// trip or one taskpool delivery.
const pollInterval = 5 * time.Millisecond

// WaitFor fails t unless condition becomes true within timeout.
//
//	testutil.WaitFor(t, 2*time.Second, "second tick", func() bool {
//	    ticks, _ := ex.State().Table.Get("ticks")
//	    return ticks.Len() == 2
//	})
func WaitFor(t testing.TB, timeout time.Duration, what string, condition func() bool) {
	t.Helper()
	if !poll(timeout, condition) {
		t.Fatalf("Timed out after %v waiting for %s", timeout, what)
	}
}

// Never fails t if condition becomes true within d. Use it for deliveries
// that must not happen, such as states pushed after an unsubscribe.
func Never(t testing.TB, d time.Duration, what string, condition func() bool) {
	t.Helper()
	if poll(d, condition) {
		t.Fatalf("Unexpected %s within %v", what, d)
	}
}

// poll reports whether condition held at some check before timeout. It
// always checks at least once, and once more at the deadline.
func poll(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		time.Sleep(min(pollInterval, remaining))
	}
}
