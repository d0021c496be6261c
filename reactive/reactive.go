// Package reactive provides a small synchronous push-based dataflow toolkit.
//
// Observables in this package are not safe for concurrent use. They are meant
// to be driven from a single event loop goroutine, which owns every Subject
// and therefore every value flowing through the graph. Emissions propagate
// depth-first and synchronously: when Next returns, all downstream observers
// have seen the value.
package reactive

// Observable is a source of values that observers can subscribe to.
type Observable[T any] interface {
	// Subscribe registers fn and returns a function that removes it.
	// Implementations may call fn synchronously during Subscribe.
	Subscribe(fn func(T)) (unsubscribe func())
}

// Func adapts a plain subscribe function to the Observable interface.
type Func[T any] func(fn func(T)) func()

// Subscribe implements Observable.
func (f Func[T]) Subscribe(fn func(T)) func() {
	return f(fn)
}

type subscription[T any] struct {
	id int
	fn func(T)
}

// Subject is a hot Observable that forwards every value passed to Next to
// the observers registered at that moment, in subscription order.
type Subject[T any] struct {
	subs   []subscription[T]
	nextID int
}

// NewSubject creates an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Subscribe implements Observable.
func (s *Subject[T]) Subscribe(fn func(T)) func() {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})
	return func() {
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Next emits v to all current observers.
func (s *Subject[T]) Next(v T) {
	// Observers may subscribe or unsubscribe while being notified.
	subs := s.subs
	for _, sub := range subs {
		sub.fn(v)
	}
}

// Len returns the number of registered observers.
func (s *Subject[T]) Len() int {
	return len(s.subs)
}

// Just emits v once to every new subscriber.
func Just[T any](v T) Observable[T] {
	return Func[T](func(fn func(T)) func() {
		fn(v)
		return func() {}
	})
}

// Never is an Observable that never emits.
func Never[T any]() Observable[T] {
	return Func[T](func(fn func(T)) func() {
		return func() {}
	})
}
