// Package ticker implements a cancellable repeating tick source with a
// switch-on-latest policy: at most one interval is active at a time, and
// starting or stopping it invalidates every tick of the previous interval.
package ticker

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xiaonanln/streamgraph/util/logger"
)

var log = logger.NewLogger("ticker")

// Dispatcher runs fn on the goroutine that owns the Switch. Ticks are
// produced on a timer goroutine and handed to the owner through it.
type Dispatcher func(fn func())

// Switch turns a periodic counter on and off.
//
// Set, Active and the emit callback run on the owner goroutine. Each
// activation gets a new generation; a tick is emitted only if its generation
// is still current when the dispatched closure runs, so once Set(false)
// returns no tick of the cancelled interval is ever observed.
type Switch struct {
	clock    clock.Clock
	period   time.Duration
	dispatch Dispatcher
	emit     func(n int)
	onStale  func()

	mu     sync.Mutex
	gen    uint64
	active bool
	stop   chan struct{}
	ticker *clock.Ticker
	wg     sync.WaitGroup
}

// Config configures a Switch.
type Config struct {
	Clock    clock.Clock   // defaults to the wall clock
	Period   time.Duration // interval between ticks
	Dispatch Dispatcher    // hands ticks to the owner goroutine
	Emit     func(n int)   // receives 0, 1, 2, ... for each activation
	OnStale  func()        // optional; called for every dropped tick
}

// New creates an inactive Switch.
func New(cfg Config) *Switch {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Switch{
		clock:    cfg.Clock,
		period:   cfg.Period,
		dispatch: cfg.Dispatch,
		emit:     cfg.Emit,
		onStale:  cfg.OnStale,
	}
}

// Set activates or deactivates the interval. Activating an already active
// Switch is a no-op; the interval is keyed by state, not by call.
func (s *Switch) Set(active bool) {
	s.mu.Lock()
	if active == s.active {
		s.mu.Unlock()
		return
	}
	s.active = active
	s.gen++
	gen := s.gen
	if s.stop != nil {
		close(s.stop)
		s.ticker.Stop()
		s.stop, s.ticker = nil, nil
	}
	if !active {
		s.mu.Unlock()
		log.Debugf("interval stopped (generation %d)", gen)
		return
	}

	// The ticker is created before the goroutine starts so that clock
	// advances made right after Set are never missed.
	stop := make(chan struct{})
	t := s.clock.Ticker(s.period)
	s.stop, s.ticker = stop, t
	s.mu.Unlock()

	log.Debugf("interval started (generation %d, period %v)", gen, s.period)

	// The first tick fires without delay.
	s.deliver(gen, 0)

	s.wg.Add(1)
	go s.run(gen, t, stop)
}

// Active reports whether the interval is running.
func (s *Switch) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close stops the interval and waits for its timer goroutine to exit.
func (s *Switch) Close() {
	s.Set(false)
	s.wg.Wait()
}

func (s *Switch) run(gen uint64, t *clock.Ticker, stop chan struct{}) {
	defer s.wg.Done()

	n := 0
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			n++
			tick := n
			s.dispatch(func() { s.deliver(gen, tick) })
		}
	}
}

// deliver runs on the owner goroutine.
func (s *Switch) deliver(gen uint64, n int) {
	s.mu.Lock()
	current := s.active && s.gen == gen
	s.mu.Unlock()

	if !current {
		if s.onStale != nil {
			s.onStale()
		}
		return
	}
	s.emit(n)
}
