package await

// BoundedQueue supports async producer-consumer patterns between coroutines.
// Pushes and pops complete immediately while there is room / data; otherwise
// the returned awaitable completes once the operation has been performed,
// giving natural backpressure without blocking the runtime thread.
//
// BoundedQueue is a single-threaded object.
type BoundedQueue[T any] struct {
	maxSize int
	items   []T
	// condPoppable fires when the queue becomes non-empty, condPushable when
	// it stops being full.
	condPoppable *Condition
	condPushable *Condition
}

// NewBoundedQueue constructs a queue that can grow up to maxSize. A maxSize
// below one is rejected.
func NewBoundedQueue[T any](tag string, maxSize int) *BoundedQueue[T] {
	if maxSize < 1 {
		contractf("NewBoundedQueue", "maxSize %d out of range", maxSize)
	}
	return &BoundedQueue[T]{
		maxSize:      maxSize,
		condPoppable: NewCondition(tag + "-poppable"),
		condPushable: NewCondition(tag + "-pushable"),
	}
}

// MaxSize returns the queue capacity.
func (q *BoundedQueue[T]) MaxSize() int { return q.maxSize }

// Size returns the number of queued values.
func (q *BoundedQueue[T]) Size() int { return len(q.items) }

// IsEmpty reports whether the queue is empty.
func (q *BoundedQueue[T]) IsEmpty() bool { return len(q.items) == 0 }

// IsFull reports whether the queue is at capacity.
func (q *BoundedQueue[T]) IsFull() bool { return len(q.items) == q.maxSize }

// AsyncPush pushes a value. The push is performed immediately unless the
// queue is full, in which case it happens when room appears; the returned
// awaitable completes after the value has been pushed. Closing the awaitable
// abandons the push.
func (q *BoundedQueue[T]) AsyncPush(value T) *Awaitable {
	if len(q.items) < q.maxSize {
		q.items = append(q.items, value)
		q.condPoppable.NotifyOne()
		return MakeCompleted()
	}
	awt := q.condPushable.AsyncWait()
	awt.Then(func(a *Awaitable) {
		if !a.DidFail() {
			q.items = append(q.items, value)
			q.condPoppable.NotifyOne()
		}
	})
	return awt
}

// AsyncPop pops a value into *out. The pop is performed immediately unless
// the queue is empty, in which case it happens when a value arrives; the
// returned awaitable completes after *out has been written. The out pointer
// must stay valid until the awaitable is done.
func (q *BoundedQueue[T]) AsyncPop(out *T) *Awaitable {
	if len(q.items) > 0 {
		*out = q.items[0]
		q.items = q.items[1:]
		q.condPushable.NotifyOne()
		return MakeCompleted()
	}
	awt := q.condPoppable.AsyncWait()
	awt.Then(func(a *Awaitable) {
		if !a.DidFail() {
			*out = q.items[0]
			q.items = q.items[1:]
			q.condPushable.NotifyOne()
		}
	})
	return awt
}
