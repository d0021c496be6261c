package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestLockMetrics_Serializes verifies that parallel tests holding the lock
// never overlap.
func TestLockMetrics_Serializes(t *testing.T) {
	var inside atomic.Int32
	var overlaps atomic.Int32

	t.Run("group", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			t.Run("", func(t *testing.T) {
				t.Parallel()
				LockMetrics(t)

				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
			})
		}
	})

	if overlaps.Load() != 0 {
		t.Fatalf("LockMetrics allowed %d overlapping tests", overlaps.Load())
	}
}

func TestWaitFor_Immediate(t *testing.T) {
	WaitFor(t, time.Second, "already true", func() bool { return true })
}

func TestWaitFor_Eventually(t *testing.T) {
	var mu sync.Mutex
	ready := false
	go func() {
		time.Sleep(80 * time.Millisecond)
		mu.Lock()
		ready = true
		mu.Unlock()
	}()

	WaitFor(t, 2*time.Second, "flag to be set", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ready
	})
}

func TestNever(t *testing.T) {
	calls := 0
	Never(t, 30*time.Millisecond, "condition", func() bool {
		calls++
		return false
	})
	if calls < 2 {
		t.Errorf("condition checked %d times, want at least 2", calls)
	}
}

func TestPoll_Deadline(t *testing.T) {
	start := time.Now()
	if poll(20*time.Millisecond, func() bool { return false }) {
		t.Fatal("poll reported success for a false condition")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("poll gave up after %v, before the deadline", elapsed)
	}

	var flag atomic.Bool
	time.AfterFunc(10*time.Millisecond, func() { flag.Store(true) })
	if !poll(2*time.Second, flag.Load) {
		t.Error("poll missed a condition that became true")
	}
}
