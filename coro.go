package await

import (
	"fmt"
)

// EntryFunc is the signature of a coroutine body. The value passed to the
// first resume is handed to the entry; any uncaught panic pops out in the
// parent coroutine, except the forced-unwind sentinel which is swallowed by
// the runtime after the stack has unwound.
type EntryFunc func(value any)

// xfer is the payload carried across a coroutine switch. Exactly one of
// value, err, unwind is meaningful: err is re-panicked at the target's
// suspension point, unwind raises the forced-unwind sentinel there.
type xfer struct {
	value  any
	err    error
	unwind bool
}

// rt is the per-runtime-thread state shared by a master coroutine and every
// coroutine it multiplexes. The master stack supports temporarily promoting
// a coroutine to master (see Condition): while promoted, completions are
// permitted from it and suspending coroutines return control to it.
type rt struct {
	root   *Coro
	pushed []*Coro
	sched  Scheduler
}

// activeMaster returns the coroutine currently acting as master.
func (r *rt) activeMaster() *Coro {
	if n := len(r.pushed); n > 0 {
		return r.pushed[n-1]
	}
	return r.root
}

func (r *rt) pushMaster(c *Coro) { r.pushed = append(r.pushed, c) }

func (r *rt) popMaster() { r.pushed = r.pushed[:len(r.pushed)-1] }

// Coro is a resumable execution context with its own stack, backed by a
// parked goroutine from the stack pool. Switching is symmetric: any coroutine
// may yield to any other by identity via [YieldTo].
//
// Coro is a single-threaded object; all methods must be called from the
// runtime thread that owns its master.
type Coro struct {
	tag      string
	entry    EntryFunc
	resume   chan xfer
	parent   *Coro
	rt       *rt
	worker   *worker
	started  bool
	done     bool
	isMaster bool
}

// NewCoro creates a coroutine that will execute entry on its own stack. The
// entry is not entered until the coroutine is first resumed. The parent
// defaults to the creating coroutine; when the entry returns, control
// transfers to the parent.
func NewCoro(tag string, entry EntryFunc) *Coro {
	if entry == nil {
		contractf("NewCoro", "nil entry")
	}
	cur := ensureCurrent()
	c := &Coro{
		tag:    tag,
		entry:  entry,
		resume: make(chan xfer),
		parent: cur,
		rt:     cur.rt,
	}
	c.worker = acquireWorker()
	c.worker.jobs <- c
	dbg().Str("coro", tag).Log("coroutine created")
	return c
}

// Tag returns the coroutine's debug identifier.
func (c *Coro) Tag() string { return c.tag }

// SetTag sets the coroutine's debug identifier.
func (c *Coro) SetTag(tag string) { c.tag = tag }

// IsRunning reports whether the coroutine has not yet finished. A coroutine
// that was created but never resumed is considered running: it still holds a
// stack that must be unwound.
func (c *Coro) IsRunning() bool { return !c.done }

// IsMaster reports whether this is a root master coroutine.
func (c *Coro) IsMaster() bool { return c.isMaster }

// isActiveMaster reports whether c is currently acting as master, either as
// the root or by promotion.
func (c *Coro) isActiveMaster() bool { return c.rt.activeMaster() == c }

// Parent returns the coroutine control transfers to when the entry returns,
// and the target of [Yield].
func (c *Coro) Parent() *Coro { return c.parent }

// SetParent overrides the parent coroutine.
func (c *Coro) SetParent(p *Coro) { c.parent = p }

// Close destroys the coroutine. If the entry has not finished, the coroutine
// is resumed with a forced unwind and the call blocks until its stack has
// fully unwound (deferred cleanup included). Closing a finished coroutine is
// a no-op. A coroutine cannot close itself.
func (c *Coro) Close() error {
	if c.done {
		return nil
	}
	cur := ensureCurrent()
	if cur == c {
		contractf("Coro.Close", "coroutine %q cannot close itself", c.tag)
	}
	dbg().Str("coro", c.tag).Log("force unwinding coroutine")
	c.parent = cur
	out := switchTo(cur, c, xfer{unwind: true})
	return out.err
}

// run executes the coroutine body on its worker goroutine. The first receive
// on the resume channel is the initial transfer; when the entry returns, the
// final transfer is delivered to the parent without expecting a resume.
func (c *Coro) run() {
	gid := c.worker.gid
	glsStore(gid, c)
	defer glsDelete(gid)

	first := <-c.resume

	var out xfer
	func() {
		defer func() {
			if r := recover(); r != nil {
				if IsForcedUnwind(r) {
					dbg().Str("coro", c.tag).Log("coroutine unwound")
					return
				}
				out.err = recoveredError(r)
			}
		}()
		if first.unwind {
			panic(forcedUnwindSignal{})
		}
		if first.err != nil {
			panic(first.err)
		}
		c.entry(first.value)
	}()

	c.done = true
	c.parent.resume <- out
}

// switchTo suspends cur and transfers control to target, delivering x at the
// target's suspension point. It returns the transfer that eventually resumes
// cur. Callers that may observe an error or unwind transfer must route the
// result through receive.
func switchTo(cur, target *Coro, x xfer) xfer {
	if target == nil {
		contractf("yield", "nil target coroutine")
	}
	if target == cur {
		contractf("yield", "coroutine %q cannot yield to itself", cur.tag)
	}
	if target.done {
		contractf("yield", "coroutine %q has already finished", target.tag)
	}
	target.started = true
	target.resume <- x
	return <-cur.resume
}

// receive unpacks a transfer in the context of the freshly resumed
// coroutine, re-raising transported errors and the forced-unwind sentinel.
func receive(in xfer) any {
	if in.unwind {
		panic(forcedUnwindSignal{})
	}
	if in.err != nil {
		panic(in.err)
	}
	return in.value
}

// YieldTo suspends the current coroutine and resumes target, passing value.
// It returns the value this coroutine is eventually resumed with. An error
// transported by the resumer is re-panicked here, as is the forced-unwind
// sentinel when the coroutine is being destroyed.
func YieldTo(target *Coro, value any) any {
	return receive(switchTo(ensureCurrent(), target, xfer{value: value}))
}

// Resume transfers control to target, passing value, and suspends the
// current coroutine. It is [YieldTo] named from the resumer's perspective;
// switching is symmetric, so the two are one operation.
func Resume(target *Coro, value any) any {
	return YieldTo(target, value)
}

// Yield suspends the current coroutine and resumes its parent. It must not
// be called on a master coroutine.
func Yield(value any) any {
	cur := ensureCurrent()
	if cur.isMaster {
		contractf("Yield", "master coroutine has no parent to yield to")
	}
	return receive(switchTo(cur, cur.parent, xfer{value: value}))
}

// YieldErrorTo suspends the current coroutine and resumes target with an
// in-flight error, which is re-panicked at the target's suspension point.
func YieldErrorTo(target *Coro, err error) any {
	if err == nil {
		contractf("YieldErrorTo", "nil error")
	}
	return receive(switchTo(ensureCurrent(), target, xfer{err: err}))
}

// CurrentCoro returns the coroutine executing on the calling goroutine. On a
// goroutine with no runtime state, the master coroutine is lazily created and
// returned.
func CurrentCoro() *Coro { return ensureCurrent() }

// MasterCoro returns the coroutine currently acting as master for the
// calling goroutine's runtime thread, lazily creating the root master on
// first use.
func MasterCoro() *Coro { return ensureCurrent().rt.activeMaster() }

// ReleaseMaster tears down the master coroutine of the calling goroutine.
// It must only be called from the root master itself, with no live
// coroutines outstanding; typically at the natural end of the runtime
// goroutine.
func ReleaseMaster() {
	gid := goroutineID()
	c := glsLoad(gid)
	if c == nil {
		return
	}
	if !c.isMaster {
		contractf("ReleaseMaster", "called from coroutine %q, not the master", c.tag)
	}
	glsDelete(gid)
}

// ensureCurrent returns the coroutine bound to the calling goroutine,
// creating the root master on first use.
func ensureCurrent() *Coro {
	gid := goroutineID()
	if c := glsLoad(gid); c != nil {
		return c
	}
	m := &Coro{
		tag:      fmt.Sprintf("master-%d", gid),
		resume:   make(chan xfer),
		isMaster: true,
		started:  true,
	}
	m.rt = &rt{root: m, sched: ImmediateScheduler{}}
	glsStore(gid, m)
	dbg().Str("coro", m.tag).Log("master coroutine initialized")
	return m
}
