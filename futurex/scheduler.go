package futurex

// Scheduler runs jobs off the calling goroutine. Implementations decide
// where: a fresh goroutine, a worker pool or an external event loop.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a plain function into a Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Schedule(fn func()) {
	f(fn)
}

type goroutineScheduler struct{}

func (goroutineScheduler) Schedule(fn func()) {
	go fn()
}

// DefaultScheduler starts a new goroutine for every job.
var DefaultScheduler Scheduler = goroutineScheduler{}
