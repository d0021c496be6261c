package reactive

// Pair holds the latest values of two combined sources.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Map transforms every value of src with f.
func Map[T, R any](src Observable[T], f func(T) R) Observable[R] {
	return Func[R](func(fn func(R)) func() {
		return src.Subscribe(func(v T) {
			fn(f(v))
		})
	})
}

// MapTo replaces every value of src with v.
func MapTo[T, R any](src Observable[T], v R) Observable[R] {
	return Map(src, func(T) R { return v })
}

// Scan folds src into an accumulator starting at seed and emits every
// intermediate accumulation. Each subscription keeps its own accumulator.
func Scan[T, S any](src Observable[T], f func(acc S, v T) S, seed S) Observable[S] {
	return Func[S](func(fn func(S)) func() {
		acc := seed
		return src.Subscribe(func(v T) {
			acc = f(acc, v)
			fn(acc)
		})
	})
}

// StartWith emits v to each subscriber before forwarding the values of src.
func StartWith[T any](src Observable[T], v T) Observable[T] {
	return Func[T](func(fn func(T)) func() {
		fn(v)
		return src.Subscribe(fn)
	})
}

// CombineLatest2 emits the latest value of both sources whenever either one
// emits, once both have emitted at least once. The other side is not required
// to have changed since the previous emission.
func CombineLatest2[A, B any](a Observable[A], b Observable[B]) Observable[Pair[A, B]] {
	return Func[Pair[A, B]](func(fn func(Pair[A, B])) func() {
		var (
			latest     Pair[A, B]
			hasA, hasB bool
		)
		unsubA := a.Subscribe(func(v A) {
			latest.First, hasA = v, true
			if hasB {
				fn(latest)
			}
		})
		unsubB := b.Subscribe(func(v B) {
			latest.Second, hasB = v, true
			if hasA {
				fn(latest)
			}
		})
		return func() {
			unsubA()
			unsubB()
		}
	})
}

// CombineLatestAll is CombineLatest2 generalized to any number of sources of
// the same type. The emitted slice is a fresh copy on every emission.
func CombineLatestAll[T any](srcs []Observable[T]) Observable[[]T] {
	return Func[[]T](func(fn func([]T)) func() {
		latest := make([]T, len(srcs))
		seen := make([]bool, len(srcs))
		missing := len(srcs)
		unsubs := make([]func(), 0, len(srcs))

		for i, src := range srcs {
			i := i
			unsubs = append(unsubs, src.Subscribe(func(v T) {
				latest[i] = v
				if !seen[i] {
					seen[i] = true
					missing--
				}
				if missing == 0 {
					out := make([]T, len(latest))
					copy(out, latest)
					fn(out)
				}
			}))
		}
		return func() {
			for _, unsub := range unsubs {
				unsub()
			}
		}
	})
}

// Share multicasts src to all subscribers through a single upstream
// subscription, replaying the most recent value to late subscribers.
// The upstream subscription is made on first Subscribe and kept for the life
// of the returned Observable.
func Share[T any](src Observable[T]) Observable[T] {
	var (
		subject   = NewSubject[T]()
		connected bool
		hasLast   bool
		last      T
	)
	return Func[T](func(fn func(T)) func() {
		if hasLast {
			fn(last)
		}
		unsub := subject.Subscribe(fn)
		if !connected {
			connected = true
			src.Subscribe(func(v T) {
				last, hasLast = v, true
				subject.Next(v)
			})
		}
		return unsub
	})
}

// Distinct suppresses values equal to the previously emitted one.
func Distinct[T comparable](src Observable[T]) Observable[T] {
	return Func[T](func(fn func(T)) func() {
		var (
			prev    T
			hasPrev bool
		)
		return src.Subscribe(func(v T) {
			if hasPrev && prev == v {
				return
			}
			prev, hasPrev = v, true
			fn(v)
		})
	})
}
