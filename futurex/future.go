// Package futurex provides a single-assignment future used to bridge
// callback style native operations into context aware Go code.
package futurex

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// Future is a value that becomes available once, either as a result or as an
// error. A Future may be waited on from any number of goroutines.
type Future[T any] struct {
	completed atomic.Bool
	doneCh    chan struct{}

	lock      sync.Mutex
	callbacks []func()

	value T
	err   error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		doneCh: make(chan struct{}),
	}
}

// Resolved returns a future which has already completed with val.
func Resolved[T any](val T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(val)
	return f
}

// Rejected returns a future which has already failed with err.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Resolve completes the future with val. It reports false if the future had
// already been completed, in which case val is discarded.
func (f *Future[T]) Resolve(val T) bool {
	return f.complete(val, nil)
}

// Reject fails the future with err. It reports false if the future had
// already been completed.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.complete(zero, err)
}

func (f *Future[T]) complete(val T, err error) bool {
	if !f.completed.CompareAndSwap(false, true) {
		return false
	}

	f.lock.Lock()
	f.value = val
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.doneCh)
	f.lock.Unlock()

	for _, cb := range callbacks {
		cb()
	}

	return true
}

// Done returns a channel which is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.doneCh
}

// Wait blocks until the future completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.doneCh:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// onDone invokes cb once the future has completed, immediately if it
// already has. cb runs on the completing goroutine.
func (f *Future[T]) onDone(cb func()) {
	f.lock.Lock()
	select {
	case <-f.doneCh:
		f.lock.Unlock()
		cb()
		return
	default:
	}
	f.callbacks = append(f.callbacks, cb)
	f.lock.Unlock()
}

// Then schedules fn to run once f resolves, and returns a future for its
// result. Errors from f skip fn and propagate to the returned future.
func Then[T any, U any](f *Future[T], sched Scheduler, fn func(T) (U, error)) *Future[U] {
	if sched == nil {
		sched = DefaultScheduler
	}

	out := NewFuture[U]()
	f.onDone(func() {
		if f.err != nil {
			out.Reject(f.err)
			return
		}

		sched.Schedule(func() {
			val, err := fn(f.value)
			if err != nil {
				out.Reject(err)
				return
			}
			out.Resolve(val)
		})
	})
	return out
}
