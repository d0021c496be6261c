package explorer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xiaonanln/streamgraph/util/taskpool"
)

// Observer receives published render states.
type Observer interface {
	OnRenderState(state *RenderState)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(state *RenderState)

// OnRenderState implements Observer.
func (f ObserverFunc) OnRenderState(state *RenderState) {
	f(state)
}

// subscriber delivers states to one observer on its own task pool key.
// Only the newest undelivered state is kept, so a slow observer skips
// intermediate versions but never sees them out of order.
type subscriber struct {
	key       string
	obs       Observer
	pending   atomic.Pointer[RenderState]
	scheduled atomic.Bool
	offered   uint64 // guarded by Explorer.obsMu
}

func (s *subscriber) offer(pool *taskpool.TaskPool, st *RenderState) {
	if st.Version <= s.offered {
		return
	}
	s.offered = st.Version
	s.pending.Store(st)
	if !s.scheduled.CompareAndSwap(false, true) {
		return
	}
	pool.Submit(s.key, func(ctx context.Context) {
		s.scheduled.Store(false)
		if st := s.pending.Swap(nil); st != nil {
			s.obs.OnRenderState(st)
		}
	})
}

// Subscribe registers obs under key. The observer immediately receives the
// current state and then every newer one, on a goroutine other than the
// caller's. The returned function unregisters it and waits for an
// in-flight delivery to finish.
func (e *Explorer) Subscribe(key string, obs Observer) (unsubscribe func(), err error) {
	select {
	case <-e.done:
		return nil, ErrStopped
	default:
	}

	sub := &subscriber{key: key, obs: obs}

	e.obsMu.Lock()
	if _, exists := e.observers[key]; exists {
		e.obsMu.Unlock()
		return nil, fmt.Errorf("observer %q already subscribed", key)
	}
	e.observers[key] = sub
	// Offered under the lock so a concurrent publish cannot slip an older
	// state in after this one.
	sub.offer(e.pool, e.state.Load())
	e.obsMu.Unlock()

	log.Debugf("Observer %s subscribed", key)
	return func() {
		e.obsMu.Lock()
		current, ok := e.observers[key]
		if ok && current == sub {
			delete(e.observers, key)
		}
		e.obsMu.Unlock()
		if ok && current == sub {
			e.pool.Remove(key)
			log.Debugf("Observer %s unsubscribed", key)
		}
	}, nil
}

// Observers returns the number of registered observers.
func (e *Explorer) Observers() int {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	return len(e.observers)
}
