package await

import (
	"sync/atomic"
)

// completerCell is the shared slot linking an awaitable to its completers.
// The awaitable invalidates the slot on terminal transition or close, at
// which point every outstanding completer is expired. The pointer is atomic
// only so that [Completer.ScheduleComplete] may be issued from another
// goroutine; all other access is single-threaded.
type completerCell struct {
	awt atomic.Pointer[Awaitable]
}

// Completer is a copyable capability that drives its awaitable to a terminal
// state. It holds a weak reference: once the awaitable is done or closed the
// completer is expired and invocations are no-ops. The first non-expired
// Complete or Fail wins.
//
// The zero Completer is expired.
type Completer struct {
	cell *completerCell
}

// IsExpired reports whether the completer can no longer affect its
// awaitable.
func (c Completer) IsExpired() bool {
	return c.cell == nil || c.cell.awt.Load() == nil
}

// Awaitable returns the completer's awaitable, or nil if expired.
func (c Completer) Awaitable() *Awaitable {
	if c.cell == nil {
		return nil
	}
	return c.cell.awt.Load()
}

// GuardToken returns a token observing the awaitable's callback guard. The
// token blocks when the awaitable finishes or is closed, and remains
// readable afterwards. The zero token is returned for an expired completer.
func (c Completer) GuardToken() GuardToken {
	a := c.Awaitable()
	if a == nil || a.guard == nil {
		return GuardToken{}
	}
	return a.guard.Token()
}

// Complete transitions the awaitable to [StateCompleted]: continuations run
// first, then the awaiting coroutine (if any) is resumed. Must run on the
// owning master; expired completers are a no-op.
func (c Completer) Complete() {
	a := c.Awaitable()
	if a == nil {
		return
	}
	c.assertMaster(a, "Completer.Complete")
	a.finish(nil)
}

// Fail transitions the awaitable to [StateFailed] with err, which every
// await of the awaitable returns from then on. Must run on the owning
// master; expired completers are a no-op.
func (c Completer) Fail(err error) {
	a := c.Awaitable()
	if a == nil {
		return
	}
	if err == nil {
		contractf("Completer.Fail", "nil error for awaitable %q", a.tag)
	}
	c.assertMaster(a, "Completer.Fail")
	a.finish(err)
}

// ScheduleComplete posts Complete to the owning master's scheduler. This is
// the sanctioned way to finish an awaitable from another goroutine: the
// completer may be copied across threads, but the actual transition executes
// on the master. Safe to call on an expired completer.
func (c Completer) ScheduleComplete() {
	if a := c.Awaitable(); a != nil {
		a.rt.sched.Schedule(func() {
			c.Complete()
		})
	}
}

// ScheduleFail posts Fail(err) to the owning master's scheduler. See
// [Completer.ScheduleComplete].
func (c Completer) ScheduleFail(err error) {
	if a := c.Awaitable(); a != nil {
		a.rt.sched.Schedule(func() {
			c.Fail(err)
		})
	}
}

// Wrap adapts the completer into a raw callback for an external async API.
// When invoked, the adapter first consults the guard token and returns
// silently if the awaitable is gone; otherwise it calls fn, completing on a
// nil return and failing with the returned error. The adapter holds the
// completer by value, so the weak/expired semantics apply if the awaitable
// died first.
func (c Completer) Wrap(fn func(args ...any) error) func(args ...any) {
	token := c.GuardToken()
	return func(args ...any) {
		if token.IsBlocked() {
			dbg().Log("late callback ignored by guard")
			return
		}
		if err := fn(args...); err != nil {
			c.Fail(err)
		} else {
			c.Complete()
		}
	}
}

// assertMaster enforces the completion context contract.
func (c Completer) assertMaster(a *Awaitable, op string) {
	cur := glsLoad(goroutineID())
	if cur == nil || cur.rt != a.rt {
		contractf(op, "awaitable %q completed from a foreign goroutine", a.tag)
	}
	if !cur.isActiveMaster() {
		contractf(op, "awaitable %q completed from coroutine %q, not the master", a.tag, cur.tag)
	}
}
