package await

// Sequence adapts a coroutine into a pull-style generator: the producer
// yields values from arbitrary call depth, the consumer drives it with
// [Sequence.Next]. Traversal is single-shot.
//
// The producer runs on its own coroutine; an error return or panic ends the
// sequence and is reported by [Sequence.Err]. Closing a sequence before
// exhaustion force-unwinds the producer so deferred cleanup runs.
type Sequence[T any] struct {
	coro *Coro
	cur  T
	err  error
}

// Yielder hands values out of a running [Sequence] producer.
type Yielder[T any] struct {
	coro *Coro
}

// Yield suspends the producer until the consumer asks for the next value.
func (y *Yielder[T]) Yield(value T) {
	receive(switchTo(y.coro, y.coro.parent, xfer{value: value}))
}

// NewSequence wraps fn into an iterable sequence. fn may call
// [Yielder.Yield] any number of times, from any call depth, and ends the
// sequence by returning.
func NewSequence[T any](tag string, fn func(*Yielder[T]) error) *Sequence[T] {
	if fn == nil {
		contractf("NewSequence", "nil producer")
	}
	s := &Sequence[T]{}
	s.coro = NewCoro(tag, func(any) {
		if err := fn(&Yielder[T]{coro: s.coro}); err != nil {
			panic(err)
		}
	})
	return s
}

// Next resumes the producer until it yields the next value, returning false
// when the producer has finished. After a false return, [Sequence.Err]
// reports whether it ended with an error.
func (s *Sequence[T]) Next() bool {
	if s.coro.done || s.err != nil {
		return false
	}
	cur := ensureCurrent()
	s.coro.parent = cur
	out := switchTo(cur, s.coro, xfer{})
	if out.err != nil {
		s.err = out.err
		return false
	}
	if s.coro.done {
		return false
	}
	s.cur, _ = out.value.(T)
	return true
}

// Value returns the value produced by the last successful [Sequence.Next].
func (s *Sequence[T]) Value() T { return s.cur }

// Err returns the error the producer ended with, if any.
func (s *Sequence[T]) Err() error { return s.err }

// Close tears down the sequence, force-unwinding the producer if it has not
// finished. Safe to call multiple times.
func (s *Sequence[T]) Close() error {
	return s.coro.Close()
}
