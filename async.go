package await

// AsyncFunc is the signature accepted by [StartAsync]. The self argument is
// the awaitable managing the coroutine, handy for chaining further async
// work. A nil return completes the awaitable, a non-nil return fails it.
type AsyncFunc func(self *Awaitable) error

// StartAsync prepares fn to run as a coroutine and returns an awaitable
// hooked up to it. The awaitable's completer is marked taken: nothing but
// the coroutine's outcome may finish it.
//
// The coroutine is not entered inside StartAsync. A cancellable start action
// is posted to the master's scheduler; the first [Awaitable.Await] on the
// returned awaitable cancels that action and yields straight to the
// coroutine instead. With the inline [ImmediateScheduler] the start action
// runs before StartAsync returns; install a deferring scheduler to chain
// setup code ahead of any user work.
//
// A normal return completes the awaitable, an error return or a panic fails
// it (an error panic value is kept as-is, any other value is wrapped in
// *PanicError), and a forced unwind terminates the
// coroutine silently. Closing the returned awaitable while fn is suspended
// unwinds the coroutine to completion before Close returns.
func StartAsync(tag string, fn AsyncFunc) *Awaitable {
	if fn == nil {
		contractf("StartAsync", "nil async function")
	}
	r := ensureCurrent().rt

	a := New(tag)
	a.completerTaken = true
	a.state = StateRunning
	dbg().Str("awaitable", tag).Log("starting async coroutine")

	c := NewCoro(tag, func(any) {
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if IsForcedUnwind(r) {
						// The cancellation contract: forced unwinds propagate.
						panic(r)
					}
					err = recoveredError(r)
				}
			}()
			return fn(a)
		}()

		cur := ensureCurrent()
		if w := a.awaiter; w != nil {
			// Wait until the stack fully unwinds before resuming the
			// awaiter: route the final transfer straight to it.
			cur.parent = w
			a.awaiter = nil
		} else {
			cur.parent = a.rt.activeMaster()
		}
		a.finish(err) // awaiter is nil, will not yield
		a.bound = nil
	})
	c.parent = r.root
	a.bound = c

	// Defer the start until the current context suspends itself. The ticket
	// must be installed before scheduling: an inline scheduler runs the
	// action before Schedule returns.
	w := newWeakAction(func() {
		a.startTicket = nil
		m := ensureCurrent()
		receive(switchTo(m, c, xfer{}))
	})
	a.startTicket = w
	r.sched.Schedule(w.invoke)

	return a
}
