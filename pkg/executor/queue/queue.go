package queue

import (
	"sync"
	"time"

	gxerrors "github.com/vnykmshr/goexec/pkg/common/errors"
)

// Queue is a bounded, thread-safe queue.
//
// The interface is intentionally small so that ordering strategies
// (FIFO, priority) can be swapped without affecting pool logic.
type Queue[T any] interface {
	// Put blocks until the item is enqueued or the queue is closed.
	Put(item T) error

	// TryPut enqueues without blocking. It fails with ErrCapacityExceeded
	// when the queue is full.
	TryPut(item T) error

	// PutTimeout blocks up to timeout, then fails with ErrTimeout.
	PutTimeout(item T, timeout time.Duration) error

	// Take blocks until an item is available or the queue is closed and
	// empty. A closed queue keeps delivering items until it is drained.
	Take() (T, error)

	// TryTake dequeues without blocking.
	TryTake() (T, bool)

	// TakeTimeout blocks up to timeout, then fails with ErrTimeout.
	TakeTimeout(timeout time.Duration) (T, error)

	// EvictOldest removes and returns the item at the head of the queue
	// (the one Take would deliver next). Used by drop-oldest overload
	// handling.
	EvictOldest() (T, bool)

	// Drain atomically removes and returns all queued items.
	Drain() []T

	// Close marks the queue closed and wakes all blocked callers.
	// Idempotent.
	Close()

	// Len returns the current number of queued items.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// store holds queued items in dequeue order. Implementations are not
// thread-safe; the bounded wrapper serializes access.
type store[T any] interface {
	add(item T)
	remove() T
	length() int
}

// bounded implements Queue on top of a store, enforcing capacity with a
// single mutex and two signal channels. Waiters loop and re-check state
// after every wake, so spurious wakeups are harmless; a caller that
// proceeds while conditions still hold forwards its signal so no waiter
// is stranded.
type bounded[T any] struct {
	mu       sync.Mutex
	st       store[T]
	capacity int
	closed   bool

	done     chan struct{}
	notFull  chan struct{}
	notEmpty chan struct{}
}

func newBounded[T any](st store[T], capacity int) *bounded[T] {
	return &bounded[T]{
		st:       st,
		capacity: capacity,
		done:     make(chan struct{}),
		notFull:  make(chan struct{}, 1),
		notEmpty: make(chan struct{}, 1),
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (q *bounded[T]) Put(item T) error {
	return q.put(item, true, 0)
}

func (q *bounded[T]) TryPut(item T) error {
	return q.put(item, false, 0)
}

func (q *bounded[T]) PutTimeout(item T, timeout time.Duration) error {
	return q.put(item, true, timeout)
}

func (q *bounded[T]) put(item T, wait bool, timeout time.Duration) error {
	var timeoutCh <-chan time.Time
	if wait && timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return gxerrors.ErrClosed
		}
		if q.st.length() < q.capacity {
			q.st.add(item)
			spare := q.st.length() < q.capacity
			q.mu.Unlock()

			signal(q.notEmpty)
			if spare {
				// Forward the wakeup so concurrent putters are not stranded.
				signal(q.notFull)
			}
			return nil
		}
		q.mu.Unlock()

		if !wait {
			return gxerrors.ErrCapacityExceeded
		}

		select {
		case <-q.notFull:
		case <-q.done:
			// Re-check under the lock; closed queues reject puts.
		case <-timeoutCh:
			return gxerrors.ErrTimeout
		}
	}
}

func (q *bounded[T]) Take() (T, error) {
	return q.take(true, 0)
}

func (q *bounded[T]) TryTake() (T, bool) {
	item, err := q.take(false, 0)
	return item, err == nil
}

func (q *bounded[T]) TakeTimeout(timeout time.Duration) (T, error) {
	return q.take(true, timeout)
}

func (q *bounded[T]) take(wait bool, timeout time.Duration) (T, error) {
	var zero T
	var timeoutCh <-chan time.Time
	if wait && timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		q.mu.Lock()
		if q.st.length() > 0 {
			item := q.st.remove()
			remaining := q.st.length() > 0
			q.mu.Unlock()

			signal(q.notFull)
			if remaining {
				signal(q.notEmpty)
			}
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, gxerrors.ErrClosed
		}
		if !wait {
			return zero, gxerrors.ErrCapacityExceeded
		}

		select {
		case <-q.notEmpty:
		case <-q.done:
			// Closed while waiting; drain whatever remains, then fail.
		case <-timeoutCh:
			return zero, gxerrors.ErrTimeout
		}
	}
}

func (q *bounded[T]) EvictOldest() (T, bool) {
	var zero T
	q.mu.Lock()
	if q.st.length() == 0 {
		q.mu.Unlock()
		return zero, false
	}
	item := q.st.remove()
	q.mu.Unlock()

	signal(q.notFull)
	return item, true
}

func (q *bounded[T]) Drain() []T {
	q.mu.Lock()
	items := make([]T, 0, q.st.length())
	for q.st.length() > 0 {
		items = append(items, q.st.remove())
	}
	q.mu.Unlock()

	signal(q.notFull)
	return items
}

func (q *bounded[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
}

func (q *bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.st.length()
}

func (q *bounded[T]) Cap() int {
	return q.capacity
}

func (q *bounded[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
