// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package looper provides a ticketed, time-ordered cooperative event loop.
//
// A [Looper] drives scheduled actions on the single goroutine that calls
// [Looper.Run]; submission ([Looper.Schedule], [Looper.ScheduleRepeating],
// [Looper.Cancel], [Looper.Quit]) is safe from any goroutine. Actions with
// the same trigger time fire in ticket-ascending order. The loop pairs with
// the await package as the master coroutine's scheduler via
// [Looper.Scheduler].
package looper

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// Standard errors.
var (
	// ErrAlreadyRunning is returned when Run is called while the loop is
	// already running, including a reentrant call from one of its actions.
	ErrAlreadyRunning = errors.New("looper: loop is already running")
)

// Ticket identifies a scheduled action for later cancellation. Tickets are
// unique within a loop instance for its lifetime.
type Ticket int

// NoTicket is the reserved zero ticket.
const NoTicket Ticket = 0

// Action is a one-shot scheduled callable.
type Action func()

// RepeatingAction is a repeating scheduled callable; returning false stops
// further rescheduling.
type RepeatingAction func() bool

// managedAction is the record behind a ticket.
type managedAction struct {
	ticket      Ticket
	action      RepeatingAction
	interval    time.Duration
	catchUp     bool
	triggerTime time.Time
	cancelled   bool
}

// pendingHeap orders actions ready to fire by trigger time, breaking ties by
// ticket so that equal-time actions fire in submission order.
type pendingHeap []*managedAction

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].triggerTime.Equal(h[j].triggerTime) {
		return h[i].ticket < h[j].ticket
	}
	return h[i].triggerTime.Before(h[j].triggerTime)
}

func (h pendingHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pendingHeap) Push(x any) { *h = append(*h, x.(*managedAction)) }

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return a
}

// Looper is a cooperative timer-driven action dispatcher.
//
// Internally it keeps two containers: queued, an insertion-ordered ring of
// submitted actions, and pending, a (trigger time, ticket) min-heap of
// actions whose time has arrived. Each tick moves due entries from queued to
// pending, executes pending in order, then sleeps until the earliest future
// trigger or a wake-up notification.
type Looper struct {
	name string

	mu            sync.Mutex
	queued        *queue.Queue // *managedAction, insertion order
	pending       pendingHeap
	ticketCounter Ticket
	// executing tracks the entry currently running outside the lock, so
	// Cancel can suppress its rescheduling.
	executing          *managedAction
	executingCancelled bool
	quit               bool
	running            bool

	wake   chan struct{}
	logger *logiface.Logger[logiface.Event]
}

// LooperOption configures a Looper.
type LooperOption interface {
	apply(*Looper) error
}

type looperOptionImpl struct {
	fn func(*Looper) error
}

func (o *looperOptionImpl) apply(l *Looper) error { return o.fn(l) }

// WithLogger attaches a structured logger to the loop. Nil is accepted and
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LooperOption {
	return &looperOptionImpl{func(l *Looper) error {
		l.logger = logger
		return nil
	}}
}

// New creates a Looper. The name identifies the loop in diagnostics.
func New(name string, opts ...LooperOption) (*Looper, error) {
	l := &Looper{
		name:   name,
		queued: queue.New(),
		// Ticket numbering starts high enough that accidental use of small
		// integers as tickets is caught by Cancel returning false.
		ticketCounter: 100,
		wake:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Name returns the loop's name.
func (l *Looper) Name() string { return l.name }

// Schedule submits a one-shot action to run after delay. Thread-safe.
func (l *Looper) Schedule(action Action, delay time.Duration) Ticket {
	if action == nil {
		return NoTicket
	}
	return l.schedule(func() bool {
		action()
		return false
	}, delay, 0, false)
}

// ScheduleRepeating submits a repeating action first firing after delay and
// then every interval while the predicate returns true. With catchUp set, the
// next trigger advances by interval from the previous trigger, so slow ticks
// bunch up future fires; otherwise it advances from the current time.
// Thread-safe.
func (l *Looper) ScheduleRepeating(action RepeatingAction, delay, interval time.Duration, catchUp bool) Ticket {
	if action == nil {
		return NoTicket
	}
	return l.schedule(action, delay, interval, catchUp)
}

func (l *Looper) schedule(action RepeatingAction, delay, interval time.Duration, catchUp bool) Ticket {
	l.mu.Lock()
	l.ticketCounter++
	a := &managedAction{
		ticket:      l.ticketCounter,
		action:      action,
		interval:    interval,
		catchUp:     catchUp,
		triggerTime: time.Now().Add(delay),
	}
	l.queued.Add(a)
	l.mu.Unlock()
	l.notify()
	l.debug().Str("looper", l.name).Int("ticket", int(a.ticket)).
		Dur("delay", delay).Log("action scheduled")
	return a.ticket
}

// Cancel cancels the action identified by ticket, reporting whether a live
// entry was found. Cancelling the currently executing entry does not abort
// that invocation but prevents further reschedules. Thread-safe.
func (l *Looper) Cancel(ticket Ticket) bool {
	if ticket == NoTicket {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.executing != nil && l.executing.ticket == ticket {
		if l.executingCancelled {
			return false
		}
		l.executingCancelled = true
		return true
	}
	for i := 0; i < l.queued.Length(); i++ {
		a := l.queued.Get(i).(*managedAction)
		if a.ticket == ticket {
			if a.cancelled {
				return false
			}
			a.cancelled = true
			return true
		}
	}
	for _, a := range l.pending {
		if a.ticket == ticket {
			if a.cancelled {
				return false
			}
			a.cancelled = true
			return true
		}
	}
	return false
}

// CancelAll cancels every scheduled action. Thread-safe.
func (l *Looper) CancelAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.executing != nil {
		l.executingCancelled = true
	}
	for i := 0; i < l.queued.Length(); i++ {
		l.queued.Get(i).(*managedAction).cancelled = true
	}
	for _, a := range l.pending {
		a.cancelled = true
	}
}

// Quit cooperatively requests termination of Run. Thread-safe; actions
// already due may still fire before Run returns.
func (l *Looper) Quit() {
	l.mu.Lock()
	l.quit = true
	l.mu.Unlock()
	l.notify()
	l.debug().Str("looper", l.name).Log("quit requested")
}

// Run drives the loop on the calling goroutine until [Looper.Quit]. Exactly
// one goroutine may run a given loop at a time.
func (l *Looper) Run() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.quit = false
	l.mu.Unlock()
	l.debug().Str("looper", l.name).Log("loop running")

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		if l.quit {
			l.mu.Unlock()
			return nil
		}
		next := l.promoteDue(time.Now())
		ready := l.pending.Len() > 0
		l.mu.Unlock()

		if ready {
			l.runPending()
			continue
		}

		if next.IsZero() {
			// Nothing scheduled: sleep until woken.
			<-l.wake
			continue
		}
		wait := time.Until(next)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-l.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// promoteDue moves queued entries whose trigger time has arrived into the
// pending heap, discarding cancelled entries, and returns the earliest
// future trigger time among the remainder (zero when none). Must hold mu.
func (l *Looper) promoteDue(now time.Time) time.Time {
	var next time.Time
	for n := l.queued.Length(); n > 0; n-- {
		a := l.queued.Remove().(*managedAction)
		switch {
		case a.cancelled:
		case !a.triggerTime.After(now):
			heap.Push(&l.pending, a)
		default:
			if next.IsZero() || a.triggerTime.Before(next) {
				next = a.triggerTime
			}
			l.queued.Add(a)
		}
	}
	return next
}

// runPending executes the pending heap in (trigger time, ticket) order.
// Actions run outside the lock; repeating actions are rescheduled through
// the queued container.
func (l *Looper) runPending() {
	for {
		l.mu.Lock()
		if l.pending.Len() == 0 || l.quit {
			l.mu.Unlock()
			return
		}
		a := heap.Pop(&l.pending).(*managedAction)
		if a.cancelled {
			l.mu.Unlock()
			continue
		}
		l.executing = a
		l.executingCancelled = false
		l.mu.Unlock()

		prevTrigger := a.triggerTime
		repeat := l.invoke(a)

		l.mu.Lock()
		cancelled := l.executingCancelled
		l.executing = nil
		l.executingCancelled = false
		if repeat && a.interval > 0 && !cancelled && !l.quit {
			if a.catchUp {
				a.triggerTime = prevTrigger.Add(a.interval)
			} else {
				a.triggerTime = time.Now().Add(a.interval)
			}
			l.queued.Add(a)
		}
		l.mu.Unlock()
	}
}

// invoke runs an action, trapping panics so a misbehaving action cannot take
// the loop down.
func (l *Looper) invoke(a *managedAction) (repeat bool) {
	defer func() {
		if r := recover(); r != nil {
			repeat = false
			l.errlog().Str("looper", l.name).Int("ticket", int(a.ticket)).
				Field("panic", r).Log("panic in scheduled action")
		}
	}()
	return a.action()
}

// notify wakes the loop; the buffered channel coalesces bursts.
func (l *Looper) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) debug() *logiface.Builder[logiface.Event] {
	return l.logger.Debug()
}

func (l *Looper) errlog() *logiface.Builder[logiface.Event] {
	return l.logger.Err()
}
