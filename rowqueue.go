package gocbstreamx

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

var (
	errQueueFull    = placeholderError{"too many items"}
	errQueueAborted = placeholderError{"queue aborted"}
)

// rowQueue is a bounded FIFO between the producer of rows (the native
// pulls) and the consumer of a result. Items are always popped in the
// order they were pushed.
//
// The producer signals completion with Finish, after which the consumer
// drains the remaining items and then observes the finishing error. The
// consumer may Abort at any time to unblock a producer stuck on a full
// queue.
type rowQueue[T any] struct {
	items chan T

	finishOnce sync.Once
	finishErr  error
	finished   atomic.Bool

	abortOnce sync.Once
	abortCh   chan struct{}
}

func newRowQueue[T any](size int) *rowQueue[T] {
	if size <= 0 {
		size = 1
	}

	return &rowQueue[T]{
		items:   make(chan T, size),
		abortCh: make(chan struct{}),
	}
}

// Push adds an item, blocking while the queue is full. An item which fits
// is always accepted, even if ctx is already done.
func (q *rowQueue[T]) Push(ctx context.Context, item T) error {
	select {
	case <-q.abortCh:
		return errQueueAborted
	default:
	}

	select {
	case q.items <- item:
		return nil
	default:
	}

	select {
	case q.items <- item:
		return nil
	case <-q.abortCh:
		return errQueueAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush adds an item without blocking.
func (q *rowQueue[T]) TryPush(item T) error {
	select {
	case q.items <- item:
		return nil
	default:
		return errQueueFull
	}
}

// TryPop removes the oldest item without blocking.
func (q *rowQueue[T]) TryPop() (T, bool) {
	select {
	case item, ok := <-q.items:
		return item, ok
	default:
		var zero T
		return zero, false
	}
}

// Pop removes the oldest item, blocking until one is available. Once the
// producer has finished and the queue is drained Pop reports false, and
// FinishErr holds the error the producer finished with. A done ctx is
// reported even when an item is available.
func (q *rowQueue[T]) Pop(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}

	select {
	case item, ok := <-q.items:
		return item, ok, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

// FinishErr returns the error passed to Finish. It is only meaningful once
// IsFinished reports true.
func (q *rowQueue[T]) FinishErr() error {
	if !q.finished.Load() {
		return nil
	}
	return q.finishErr
}

// Len reports the number of buffered items.
func (q *rowQueue[T]) Len() int {
	return len(q.items)
}

// HasRoom reports whether a Push would currently succeed without blocking.
func (q *rowQueue[T]) HasRoom() bool {
	return len(q.items) < cap(q.items)
}

// Finish marks the end of the producer side. It must only be called by the
// producer, and never concurrently with Push.
func (q *rowQueue[T]) Finish(err error) {
	q.finishOnce.Do(func() {
		q.finishErr = err
		q.finished.Store(true)
		close(q.items)
	})
}

// IsFinished reports whether the producer has finished.
func (q *rowQueue[T]) IsFinished() bool {
	return q.finished.Load()
}

// Abort unblocks any pending Push and causes future pushes to fail.
func (q *rowQueue[T]) Abort() {
	q.abortOnce.Do(func() {
		close(q.abortCh)
	})
}
