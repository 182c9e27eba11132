package gocbstreamx

import (
	"github.com/couchbase/gocbstreamx/futurex"
)

// Future is the single-assignment result of an asynchronous operation.
type Future[T any] = futurex.Future[T]

// Scheduler runs the background jobs of asynchronous results.
type Scheduler = futurex.Scheduler

func schedulerOrDefault(sched Scheduler) Scheduler {
	if sched == nil {
		return futurex.DefaultScheduler
	}
	return sched
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc = futurex.SchedulerFunc

// Then returns a future resolved with fn applied to the value of f. fn runs
// on sched, or the default scheduler when sched is nil. Failures of f are
// propagated without calling fn.
func Then[T any, U any](f *Future[T], sched Scheduler, fn func(T) (U, error)) *Future[U] {
	return futurex.Then(f, sched, fn)
}
