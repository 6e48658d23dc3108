package await

import (
	"sync"
)

// The stack pool keeps a bounded number of parked worker goroutines for
// reuse, so that short-lived coroutines do not pay goroutine spawn cost (and
// already-grown stacks are reused). It is process-wide and internally
// synchronized; coroutines borrow a worker for their lifetime.

// worker is a long-lived goroutine that runs coroutine bodies one at a time.
type worker struct {
	jobs chan *Coro
	gid  uint64
}

var stackPool = struct {
	sync.Mutex
	free  []*worker
	limit int
}{limit: 64}

// SetStackPoolLimit sets the maximum number of idle workers retained for
// reuse. Zero disables pooling entirely. The default is 64.
func SetStackPoolLimit(n int) {
	if n < 0 {
		n = 0
	}
	stackPool.Lock()
	stackPool.limit = n
	excess := stackPool.free[min(n, len(stackPool.free)):]
	stackPool.free = stackPool.free[:min(n, len(stackPool.free))]
	stackPool.Unlock()
	for _, w := range excess {
		close(w.jobs)
	}
}

// DrainStackPool discards all idle pooled workers. Workers currently running
// a coroutine are unaffected.
func DrainStackPool() {
	stackPool.Lock()
	free := stackPool.free
	stackPool.free = nil
	stackPool.Unlock()
	for _, w := range free {
		close(w.jobs)
	}
}

func acquireWorker() *worker {
	stackPool.Lock()
	if n := len(stackPool.free); n > 0 {
		w := stackPool.free[n-1]
		stackPool.free = stackPool.free[:n-1]
		stackPool.Unlock()
		return w
	}
	stackPool.Unlock()

	w := &worker{jobs: make(chan *Coro)}
	ready := make(chan struct{})
	go func() {
		w.gid = goroutineID()
		close(ready)
		for c := range w.jobs {
			c.run()
			if !releaseWorker(w) {
				return
			}
		}
	}()
	<-ready
	return w
}

// releaseWorker returns a worker to the pool, reporting false if the pool is
// full and the worker should exit instead.
func releaseWorker(w *worker) bool {
	stackPool.Lock()
	defer stackPool.Unlock()
	if len(stackPool.free) >= stackPool.limit {
		close(w.jobs)
		return false
	}
	stackPool.free = append(stackPool.free, w)
	return true
}
