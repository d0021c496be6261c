// Package explorer runs the connection/close/tick dataflow on a single event
// loop, records a timeline per stream and publishes immutable render states.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xiaonanln/streamgraph/config"
	"github.com/xiaonanln/streamgraph/layout"
	"github.com/xiaonanln/streamgraph/reactive"
	"github.com/xiaonanln/streamgraph/ticker"
	"github.com/xiaonanln/streamgraph/timeline"
	"github.com/xiaonanln/streamgraph/util/callcontext"
	"github.com/xiaonanln/streamgraph/util/logger"
	"github.com/xiaonanln/streamgraph/util/metrics"
	"github.com/xiaonanln/streamgraph/util/taskpool"
)

var log = logger.NewLogger("explorer")

var (
	// ErrStopped is returned by operations on an explorer that was stopped.
	ErrStopped = errors.New("explorer stopped")
	// ErrInvalidPercent is returned by SetRange for values outside [0, 1].
	ErrInvalidPercent = errors.New("range percent must be within [0, 1]")
	// ErrRejected is returned when an event is refused by the event rules.
	ErrRejected = errors.New("event rejected")
)

// UI event kinds.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventRange      = "range"
)

// RenderState is everything needed to draw one frame. It is never modified
// after publication.
type RenderState struct {
	Version            uint64                `json:"version"`
	PublishedAt        int64                 `json:"publishedAt"`
	Graph              *layout.Graph         `json:"graph"`
	DisconnectDisabled bool                  `json:"disconnectDisabled"`
	Table              timeline.Table        `json:"timelines"`
	Range              timeline.Range        `json:"range"`
	Current            timeline.CurrentRange `json:"current"`
}

// Config configures an Explorer.
type Config struct {
	Clock        clock.Clock            // defaults to the wall clock
	TickInterval time.Duration          // defaults to config.DefaultTickInterval
	MaxHistory   int                    // 0 keeps every entry
	Graph        *layout.Graph          // defaults to layout.DefaultGraph()
	Events       *config.EventValidator // optional; nil accepts every event
}

type job struct {
	fn func()
	// done receives the version published after fn, if any.
	done chan uint64
}

// Explorer owns the dataflow. Its exported methods are safe for concurrent
// use; the dataflow itself only ever runs on the explorer's loop goroutine.
type Explorer struct {
	clock  clock.Clock
	graph  *layout.Graph
	events *config.EventValidator

	inbox    chan job
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	state atomic.Pointer[RenderState]

	pool      *taskpool.TaskPool
	obsMu     sync.Mutex
	observers map[string]*subscriber

	// Loop-owned.
	connect    *reactive.Subject[struct{}]
	disconnect *reactive.Subject[struct{}]
	percent    *reactive.Subject[float64]
	ticks      *reactive.Subject[int]
	tick       *ticker.Switch
	unsubs     []func()
	dirty      bool
	version    uint64
	table      timeline.Table
	disabled   bool
	rng        timeline.Range
	current    timeline.CurrentRange
}

// New wires the dataflow, publishes the initial render state and starts the
// event loop.
func New(cfg Config) (*Explorer, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = config.DefaultTickInterval
	}
	if cfg.TickInterval < 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v", cfg.TickInterval)
	}
	if cfg.MaxHistory < 0 {
		return nil, fmt.Errorf("max history must not be negative, got %d", cfg.MaxHistory)
	}
	if cfg.Graph == nil {
		cfg.Graph = layout.DefaultGraph()
	}
	if err := cfg.Graph.Validate(StreamNames); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	e := &Explorer{
		clock:      cfg.Clock,
		graph:      cfg.Graph,
		events:     cfg.Events,
		inbox:      make(chan job, 64),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
		pool:       taskpool.NewTaskPool(0),
		observers:  make(map[string]*subscriber),
		connect:    reactive.NewSubject[struct{}](),
		disconnect: reactive.NewSubject[struct{}](),
		percent:    reactive.NewSubject[float64](),
		ticks:      reactive.NewSubject[int](),
	}
	e.tick = ticker.New(ticker.Config{
		Clock:    cfg.Clock,
		Period:   cfg.TickInterval,
		Dispatch: e.dispatch,
		Emit:     e.ticks.Next,
		OnStale:  metrics.RecordStaleTick,
	})

	// The loop is not running yet, so wiring here is still single-threaded.
	e.wire(cfg.MaxHistory)
	e.publish()

	go e.loop()
	log.Infof("Explorer started (tick interval %v, max history %d)", cfg.TickInterval, cfg.MaxHistory)
	return e, nil
}

func (e *Explorer) now() int64 {
	return e.clock.Now().UnixMilli()
}

func (e *Explorer) wire(maxHistory int) {
	s := newStreams(e.connect, e.disconnect, e.ticks)
	sources := s.record(e.now, maxHistory)

	for _, src := range sources {
		name := src.Name
		initial := true
		e.unsubs = append(e.unsubs, src.Timeline.Subscribe(func(tl timeline.Timeline[any]) {
			if initial {
				initial = false
				return
			}
			metrics.RecordStreamEvent(name, tl.Len())
		}))
	}

	table := reactive.Share(timeline.Assemble(sources))
	e.unsubs = append(e.unsubs, table.Subscribe(func(t timeline.Table) {
		e.table = t
		e.dirty = true
	}))

	ranges := reactive.CombineLatest2(
		reactive.Map(table, timeline.ComputeRange),
		reactive.StartWith[float64](e.percent, timeline.DefaultPercent),
	)
	e.unsubs = append(e.unsubs, ranges.Subscribe(func(p reactive.Pair[timeline.Range, float64]) {
		e.rng = p.First
		e.current = timeline.NewCurrentRange(p.First, p.Second)
		e.dirty = true
	}))

	e.unsubs = append(e.unsubs, s.disconnectDisabled.Subscribe(func(disabled bool) {
		e.disabled = disabled
		e.dirty = true
	}))

	// Subscribed last: the first tick of a new interval is delivered
	// synchronously and must find the recorders already updated.
	// Distinct means a repeated "running" keeps the current interval and
	// tick count instead of restarting from tick 0.
	e.unsubs = append(e.unsubs, reactive.Distinct(s.pauses).Subscribe(func(paused bool) {
		if e.tick.Active() == !paused {
			return
		}
		e.tick.Set(!paused)
		metrics.RecordTickSwitch(!paused)
		log.Debugf("Tick interval active=%v", !paused)
	}))
}

// dispatch hands a timer callback to the loop. It gives up once the
// explorer stops so the timer goroutine can exit.
func (e *Explorer) dispatch(fn func()) {
	select {
	case e.inbox <- job{fn: fn}:
	case <-e.done:
	}
}

func (e *Explorer) loop() {
	defer close(e.exited)
	for {
		select {
		case <-e.done:
			return
		case j := <-e.inbox:
			j.fn()
			if e.dirty {
				e.publish()
			}
			if j.done != nil {
				j.done <- e.version
			}
		}
	}
}

func (e *Explorer) publish() {
	e.dirty = false
	e.version++
	st := &RenderState{
		Version:            e.version,
		PublishedAt:        e.now(),
		Graph:              e.graph,
		DisconnectDisabled: e.disabled,
		Table:              e.table,
		Range:              e.rng,
		Current:            e.current,
	}
	e.state.Store(st)
	metrics.SetRenderStateVersion(st.Version)

	e.obsMu.Lock()
	for _, sub := range e.observers {
		sub.offer(e.pool, st)
	}
	e.obsMu.Unlock()
}

// do runs fn on the loop and returns the version of the render state
// published after it. ctx only bounds the wait for a slot in the inbox:
// once queued, the event runs, so the caller waits for its outcome.
func (e *Explorer) do(ctx context.Context, fn func()) (uint64, error) {
	j := job{fn: fn, done: make(chan uint64, 1)}
	select {
	case e.inbox <- j:
	case <-e.done:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case version := <-j.done:
		return version, nil
	case <-e.exited:
		// The loop may have finished the job just before exiting.
		select {
		case version := <-j.done:
			return version, nil
		default:
			return 0, ErrStopped
		}
	}
}

func (e *Explorer) accept(ctx context.Context, transport, event string) error {
	if err := e.events.Check(transport, event); err != nil {
		if client := callcontext.ClientID(ctx); client != "" {
			log.Warnf("Rejected %s from %s", event, client)
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	metrics.RecordUIEvent(event, transport)
	return nil
}

// Connect emits one connection and returns the version of the render state
// it produced. transport names the surface the click came from and is used
// for metrics and event rules.
func (e *Explorer) Connect(ctx context.Context, transport string) (uint64, error) {
	if err := e.accept(ctx, transport, EventConnect); err != nil {
		return 0, err
	}
	return e.do(ctx, func() { e.connect.Next(struct{}{}) })
}

// Disconnect emits one close. More disconnects than connects are accepted
// and drive the current count negative.
func (e *Explorer) Disconnect(ctx context.Context, transport string) (uint64, error) {
	if err := e.accept(ctx, transport, EventDisconnect); err != nil {
		return 0, err
	}
	return e.do(ctx, func() { e.disconnect.Next(struct{}{}) })
}

// SetRange moves the cursor to percent of the recorded time range.
func (e *Explorer) SetRange(ctx context.Context, transport string, percent float64) (uint64, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidPercent, percent)
	}
	if err := e.accept(ctx, transport, EventRange); err != nil {
		return 0, err
	}
	return e.do(ctx, func() { e.percent.Next(percent) })
}

// State returns the most recently published render state.
func (e *Explorer) State() *RenderState {
	return e.state.Load()
}

// Stop shuts the loop and the tick interval down. Pending and future
// operations fail with ErrStopped.
func (e *Explorer) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		<-e.exited
		e.tick.Close()
		for _, unsub := range e.unsubs {
			unsub()
		}
		e.pool.Stop()
		log.Infof("Explorer stopped at version %d", e.version)
	})
}
