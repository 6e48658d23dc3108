package await

// Awaiter is the selector trait used by the combinators to extract an
// awaitable from arbitrary collection members: *Awaitable implements it
// directly, [Tagged] pairs one with a value, and user structs embedding an
// awaitable can implement it themselves. A nil extracted awaitable is
// skipped.
type Awaiter interface {
	Awaitable() *Awaitable
}

// Tagged pairs an awaitable with an arbitrary value, for collections where
// each pending operation carries context (a connection, a request id, ...).
type Tagged[T any] struct {
	Awt   *Awaitable
	Value T
}

// Awaitable implements [Awaiter].
func (t Tagged[T]) Awaitable() *Awaitable { return t.Awt }

// AwaitAll awaits every member in collection order, equivalent to calling
// Await in sequence. The first failure is returned immediately; remaining
// members are left as-is and their lifetimes stay with the caller. Must be
// called from a non-master coroutine.
func AwaitAll[T Awaiter](awts []T) error {
	for _, x := range awts {
		a := x.Awaitable()
		if a == nil {
			continue
		}
		if err := a.Await(); err != nil {
			return err
		}
	}
	return nil
}

// AwaitAny suspends until any member is done, returning the index of the
// first done member in collection iteration order, which is deterministic
// when several are already done at entry. It returns -1 when the collection holds
// no awaitables. A failed member's error is not propagated; await the
// returned member to observe it. Must be called from a non-master coroutine.
func AwaitAny[T Awaiter](awts []T) int {
	cur := glsLoad(goroutineID())
	if cur == nil || cur.isActiveMaster() {
		contractf("AwaitAny", "must be called from a non-master coroutine")
	}

	havePending := false
	for i, x := range awts {
		a := x.Awaitable()
		if a == nil {
			continue
		}
		if a.IsDone() {
			return i
		}
		havePending = true
	}
	if !havePending {
		return -1
	}

	for _, x := range awts {
		if a := x.Awaitable(); a != nil {
			a.setAwaiter(cur)
		}
	}
	defer func() {
		for _, x := range awts {
			if a := x.Awaitable(); a != nil && a.awaiter == cur {
				a.setAwaiter(nil)
			}
		}
	}()

	receive(switchTo(cur, cur.rt.activeMaster(), xfer{}))

	for i, x := range awts {
		a := x.Awaitable()
		if a == nil {
			continue
		}
		if a.IsDone() {
			return i
		}
	}
	contractf("AwaitAny", "resumed with no member done")
	return -1
}

// AsyncAll composes a collection into a single awaitable that completes when
// all members have completed, or fails fast with the first failure.
func AsyncAll[T Awaiter](tag string, awts []T) *Awaitable {
	return StartAsync(tag, func(*Awaitable) error {
		return AwaitAll(awts)
	})
}

// AsyncAny composes a collection into a single awaitable that completes as
// soon as any member is done, storing the done member's index in *pos. An
// empty collection never completes (the composition can still be closed).
func AsyncAny[T Awaiter](tag string, awts []T, pos *int) *Awaitable {
	if pos == nil {
		contractf("AsyncAny", "nil position output")
	}
	return StartAsync(tag, func(*Awaitable) error {
		cur := ensureCurrent()
		empty := true
		for _, x := range awts {
			if x.Awaitable() != nil {
				empty = false
				break
			}
		}
		if empty {
			// Nothing can ever finish: park until closed.
			receive(switchTo(cur, cur.rt.activeMaster(), xfer{}))
			return nil
		}
		*pos = AwaitAny(awts)
		return nil
	})
}
