package testutil

import (
	"sync"
	"testing"
)

// Global mutex for tests that touch the package-level Prometheus collectors
// in util/metrics.
var metricsTestMutex sync.Mutex

// LockMetrics gives the calling test exclusive access to the global metrics
// until it completes. Tests that Reset() or read collectors must hold it,
// otherwise a parallel test can clear or bump the same labels.
//
// Usage example:
//
//	func TestTickMetrics(t *testing.T) {
//	    testutil.LockMetrics(t)
//	    metrics.TickSwitchesTotal.Reset()
//	    ...
//	}
func LockMetrics(t *testing.T) {
	t.Helper()

	metricsTestMutex.Lock()
	t.Cleanup(func() {
		metricsTestMutex.Unlock()
	})
}
