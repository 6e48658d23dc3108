package await

// Awaitable represents a single asynchronous operation and its eventual
// outcome. It is created in [StateInitial]; an external collaborator drives
// it to a terminal state through a [Completer], or [StartAsync] binds a
// coroutine whose return or error finishes it.
//
// An awaitable exclusively owns any coroutine it launched: [Awaitable.Close]
// before the coroutine finishes injects a forced unwind and drives the stack
// to completion before returning.
//
// Awaitable is a single-threaded object. See [Completer.ScheduleComplete]
// for the sanctioned cross-thread completion path.
type Awaitable struct {
	tag     string
	state   State
	err     error
	bound   *Coro
	awaiter *Coro
	conts   []func(*Awaitable)
	cell    *completerCell
	guard   *CallbackGuard
	// rt is the owning runtime thread's state, captured at construction for
	// dispatch and contract checks.
	rt             *rt
	startTicket    *weakAction
	completerTaken bool
	closed         bool
}

// New returns an awaitable in [StateInitial] whose completer is still
// takeable. The tag identifies the awaitable in diagnostics only.
func New(tag string) *Awaitable {
	a := &Awaitable{
		tag:   tag,
		guard: NewCallbackGuard(),
		rt:    ensureCurrent().rt,
	}
	a.cell = &completerCell{}
	a.cell.awt.Store(a)
	dbg().Str("awaitable", tag).Log("awaitable created")
	return a
}

// MakeCompleted builds an already-completed awaitable. Its completer can
// never be taken; all completers derived from it would be expired.
func MakeCompleted() *Awaitable {
	return &Awaitable{
		tag:   "completed",
		state: StateCompleted,
		rt:    ensureCurrent().rt,
	}
}

// MakeFailed builds an already-failed awaitable carrying err.
func MakeFailed(err error) *Awaitable {
	if err == nil {
		contractf("MakeFailed", "nil error")
	}
	return &Awaitable{
		tag:   "failed",
		state: StateFailed,
		err:   err,
		rt:    ensureCurrent().rt,
	}
}

// Tag returns the awaitable's debug identifier.
func (a *Awaitable) Tag() string { return a.tag }

// SetTag sets the awaitable's debug identifier.
func (a *Awaitable) SetTag(tag string) { a.tag = tag }

// DidComplete reports whether the operation completed successfully.
func (a *Awaitable) DidComplete() bool { return a.state == StateCompleted }

// DidFail reports whether the operation failed.
func (a *Awaitable) DidFail() bool { return a.state == StateFailed }

// IsDone reports whether the awaitable reached a terminal state.
func (a *Awaitable) IsDone() bool { return a.state.IsDone() }

// State returns the current [State].
func (a *Awaitable) State() State { return a.state }

// Err returns the stored failure, or nil.
func (a *Awaitable) Err() error { return a.err }

// Awaitable implements [Awaiter], making *Awaitable directly usable with the
// combinators.
func (a *Awaitable) Awaitable() *Awaitable { return a }

// TakeCompleter returns the awaitable's single completer. It must be called
// at most once, before any await, and only while the awaitable is in
// [StateInitial]; the create-then-hand-out protocol is deliberately explicit.
func (a *Awaitable) TakeCompleter() Completer {
	if a.completerTaken {
		contractf("TakeCompleter", "completer of %q already taken", a.tag)
	}
	if a.state != StateInitial || a.cell == nil {
		contractf("TakeCompleter", "awaitable %q is not in Initial state", a.tag)
	}
	a.completerTaken = true
	return Completer{cell: a.cell}
}

// Await suspends the current coroutine until the awaitable reaches a
// terminal state, returning nil on completion and the stored error on
// failure. Awaiting an already-done awaitable returns immediately without a
// context switch; each await of a failed awaitable returns the error again.
//
// Await must be called from a non-master coroutine, and at most one
// coroutine may be awaiting at a time.
func (a *Awaitable) Await() error {
	cur := glsLoad(goroutineID())
	if cur == nil || cur.isActiveMaster() {
		contractf("Await", "awaitable %q awaited on the master coroutine", a.tag)
	}
	if a.awaiter != nil {
		contractf("Await", "awaitable %q already has an awaiting coroutine", a.tag)
	}
	dbg().Str("coro", cur.tag).Str("awaitable", a.tag).Log("awaiting")

	switch {
	case a.state == StateFailed:
		return a.err
	case a.state == StateCompleted:
		return nil
	case a.closed:
		return ErrAwaitableClosed
	}

	a.awaiter = cur
	// Clear the registration even when a forced unwind or transported error
	// tears through the suspension point below.
	defer func() {
		if a.awaiter == cur {
			a.awaiter = nil
		}
	}()
	if a.bound != nil && a.startTicket != nil {
		// The bound coroutine has not started; since we must yield anyway,
		// enter it directly instead of going through the scheduler.
		t := a.startTicket
		a.startTicket = nil
		t.cancel()
		receive(switchTo(cur, a.bound, xfer{}))
	} else {
		receive(switchTo(cur, cur.rt.activeMaster(), xfer{}))
	}

	switch a.state {
	case StateFailed:
		return a.err
	case StateCompleted:
		return nil
	}
	contractf("Await", "awaitable %q resumed while not done", a.tag)
	return nil
}

// Then appends a continuation to run once, on the terminal transition, in
// registration order and before any awaiting coroutine is resumed. If the
// awaitable is already done the continuation runs before Then returns.
// Panics from continuations are trapped and logged; they never corrupt the
// terminal state.
func (a *Awaitable) Then(fn func(*Awaitable)) {
	if fn == nil {
		return
	}
	if a.IsDone() {
		a.runContinuation(fn)
		return
	}
	a.conts = append(a.conts, fn)
}

// setAwaiter registers (or clears, with nil) the coroutine blocked on this
// awaitable without yielding. It exists so [AwaitAny] can register on every
// pending member before suspending once.
func (a *Awaitable) setAwaiter(c *Coro) {
	if c != nil && a.awaiter != nil && a.awaiter != c {
		contractf("setAwaiter", "awaitable %q already has an awaiting coroutine", a.tag)
	}
	a.awaiter = c
}

// Close cancels the awaitable. All outstanding completers expire. If a bound
// coroutine is still live it is resumed with a forced unwind and its stack is
// fully unwound before Close returns; cleanup defers in the coroutine run as
// usual. Closing a done or already-closed awaitable only releases resources.
// Close never runs pending continuations: they fire solely on the terminal
// transition.
func (a *Awaitable) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	dbg().Str("awaitable", a.tag).Str("state", a.state.String()).Log("closing awaitable")

	a.invalidate()
	if t := a.startTicket; t != nil {
		a.startTicket = nil
		t.cancel()
	}
	if a.IsDone() {
		a.bound = nil
		return nil
	}
	a.awaiter = nil
	a.conts = nil

	if c := a.bound; c != nil && !c.done {
		a.bound = nil
		cur := ensureCurrent()
		if cur == c {
			contractf("Awaitable.Close", "awaitable %q closed from its own coroutine", a.tag)
		}
		c.parent = cur
		out := switchTo(cur, c, xfer{unwind: true})
		return out.err
	}
	a.bound = nil
	return nil
}

// invalidate expires all completers and blocks the callback guard.
func (a *Awaitable) invalidate() {
	if a.cell != nil {
		a.cell.awt.Store(nil)
	}
	if a.guard != nil {
		a.guard.Block()
	}
}

// finish drives the awaitable to a terminal state: stores the outcome,
// expires completers, runs continuations in registration order, then resumes
// the awaiting coroutine if one is registered. It must execute on the active
// master or on the bound coroutine.
func (a *Awaitable) finish(err error) {
	if a.IsDone() {
		contractf("finish", "awaitable %q is already done", a.tag)
	}
	cur := ensureCurrent()
	if !cur.isActiveMaster() && cur != a.bound {
		contractf("finish", "awaitable %q finished from wrong context %q", a.tag, cur.tag)
	}

	if err != nil {
		a.state = StateFailed
		a.err = err
		dbg().Str("awaitable", a.tag).Err(err).Log("awaitable failed")
	} else {
		a.state = StateCompleted
		dbg().Str("awaitable", a.tag).Log("awaitable completed")
	}
	a.invalidate()

	conts := a.conts
	a.conts = nil
	for _, fn := range conts {
		a.runContinuation(fn)
	}

	if a.awaiter != nil {
		// The awaiter clears its own registration after resuming.
		receive(switchTo(cur, a.awaiter, xfer{}))
	}
}

// runContinuation invokes a continuation, trapping and logging panics.
func (a *Awaitable) runContinuation(fn func(*Awaitable)) {
	defer func() {
		if r := recover(); r != nil {
			if IsForcedUnwind(r) {
				panic(r)
			}
			errlog().Str("awaitable", a.tag).
				Err(recoveredError(r)).
				Log("panic in awaitable continuation")
		}
	}()
	fn(a)
}
