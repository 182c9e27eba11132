package gocbstreamx

import (
	"context"
	"iter"
	"sync"

	"github.com/couchbase/gocbstreamx/futurex"
	"go.uber.org/atomic"
)

const (
	consumeModeNone int32 = iota
	consumeModeCursor
	consumeModeIterator
)

// AsyncStreamResult is the asynchronous form of a streaming result. Rows
// are pulled from the engine into a bounded queue by pump steps, each of
// which performs a single pull as its own job on the result's Scheduler.
// The pump parks while the queue is full and is rescheduled as the consumer
// makes room, so no job ever waits on another and a scheduler running one
// job at a time is sufficient. Failures are reported to the consumer, never
// from the pump.
//
// Consumers must either read the rows to completion or call Close.
type AsyncStreamResult[RowT any, MetaT any] struct {
	req    *streamingRequest[RowT, MetaT]
	sched  Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	lock      sync.Mutex
	stepDone  *sync.Cond
	scheduled bool
	running   bool
	finished  bool
	closed    bool
	waiter    func()

	consumeMode atomic.Int32
	drained     atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// startAsyncStreamResult submits req on sched and starts pumping its rows.
// The returned future resolves once the engine has accepted the request.
func startAsyncStreamResult[RowT any, MetaT any](
	ctx context.Context,
	req *streamingRequest[RowT, MetaT],
	sched Scheduler,
) *Future[*AsyncStreamResult[RowT, MetaT]] {
	sched = schedulerOrDefault(sched)
	out := futurex.NewFuture[*AsyncStreamResult[RowT, MetaT]]()

	sched.Schedule(func() {
		pumpCtx, cancel := context.WithCancel(ctx)

		if err := req.submit(pumpCtx); err != nil {
			cancel()
			out.Reject(err)
			return
		}

		res := &AsyncStreamResult[RowT, MetaT]{
			req:    req,
			sched:  sched,
			ctx:    pumpCtx,
			cancel: cancel,
		}
		res.stepDone = sync.NewCond(&res.lock)

		res.kick()
		out.Resolve(res)
	})

	return out
}

// kick schedules a pump step unless one is already pending, the pump has
// finished, or the queue has no room for another row.
func (r *AsyncStreamResult[RowT, MetaT]) kick() {
	r.lock.Lock()
	if r.scheduled || r.finished || r.closed || !r.req.queue.HasRoom() {
		r.lock.Unlock()
		return
	}
	r.scheduled = true
	r.lock.Unlock()

	r.sched.Schedule(r.pumpStep)
}

// pumpStep performs one pull, then wakes any waiting consumer and
// reschedules itself while the queue still has room.
func (r *AsyncStreamResult[RowT, MetaT]) pumpStep() {
	r.lock.Lock()
	if r.closed {
		r.scheduled = false
		r.lock.Unlock()
		return
	}
	r.running = true
	r.lock.Unlock()

	produced, err := r.req.nextRow(r.ctx)
	finished := true
	switch {
	case err != nil:
		r.req.queue.Finish(err)
	case !produced && r.req.isDone():
		r.req.queue.Finish(nil)
	default:
		finished = false
	}

	r.lock.Lock()
	r.running = false
	r.finished = finished
	again := !finished && !r.closed && r.req.queue.HasRoom()
	r.scheduled = again
	waiter := r.waiter
	r.waiter = nil
	r.stepDone.Broadcast()
	r.lock.Unlock()

	if finished {
		r.cancel()
	}
	if waiter != nil {
		r.sched.Schedule(waiter)
	}
	if again {
		r.sched.Schedule(r.pumpStep)
	}
}

// await arranges for fn to be scheduled once the pump has made progress.
// It reports false, without registering fn, if a row or the end of the
// rows is already available.
func (r *AsyncStreamResult[RowT, MetaT]) await(fn func()) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.req.queue.Len() > 0 || r.req.queue.IsFinished() {
		return false
	}
	r.waiter = fn
	return true
}

// wake schedules the waiting consumer, if any.
func (r *AsyncStreamResult[RowT, MetaT]) wake() {
	r.lock.Lock()
	waiter := r.waiter
	r.waiter = nil
	r.lock.Unlock()

	if waiter != nil {
		r.sched.Schedule(waiter)
	}
}

func (r *AsyncStreamResult[RowT, MetaT]) claim(mode int32) error {
	if r.consumeMode.CompareAndSwap(consumeModeNone, mode) {
		return nil
	}
	if r.consumeMode.Load() == mode && mode == consumeModeCursor {
		return nil
	}
	return ErrPreviouslyIterated
}

func (r *AsyncStreamResult[RowT, MetaT]) pop(ctx context.Context) (RowT, bool, error) {
	row, ok, err := r.req.queue.Pop(ctx)
	if err != nil {
		// the consumer gave up, so there is no one left to read the rows
		_ = r.Close()
		return row, false, err
	}
	if !ok {
		r.drained.Store(true)
		return row, false, r.req.queue.FinishErr()
	}
	r.kick()
	return row, true, nil
}

// Next waits for the next row. It reports false once the rows are
// exhausted, with any error that terminated the request. Next blocks the
// calling goroutine, so it must not be called from a job of a scheduler
// which runs one job at a time; use Execute there.
func (r *AsyncStreamResult[RowT, MetaT]) Next(ctx context.Context) (RowT, bool, error) {
	if err := r.claim(consumeModeCursor); err != nil {
		var zero RowT
		return zero, false, err
	}
	return r.pop(ctx)
}

// Rows returns an iterator over the rows of the result. Calling Rows a
// second time yields only ErrPreviouslyIterated. Breaking out of the loop
// early closes the result. Like Next, the iterator blocks between rows.
func (r *AsyncStreamResult[RowT, MetaT]) Rows(ctx context.Context) iter.Seq2[RowT, error] {
	return func(yield func(RowT, error) bool) {
		var zero RowT

		if err := r.claim(consumeModeIterator); err != nil {
			yield(zero, err)
			return
		}

		for {
			row, ok, err := r.pop(ctx)
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				_ = r.Close()
				return
			}
		}
	}
}

// Execute collects every row. The rows are gathered by short jobs on the
// result's scheduler which run whenever the pump has made progress.
func (r *AsyncStreamResult[RowT, MetaT]) Execute(ctx context.Context) *Future[[]RowT] {
	out := futurex.NewFuture[[]RowT]()

	if err := r.claim(consumeModeIterator); err != nil {
		out.Reject(err)
		return out
	}

	c := &rowCollector[RowT, MetaT]{
		res: r,
		ctx: ctx,
		out: out,
	}
	c.stopWake = context.AfterFunc(ctx, r.wake)
	r.sched.Schedule(c.collect)

	return out
}

// MetaData returns the response metadata once every row has been consumed.
func (r *AsyncStreamResult[RowT, MetaT]) MetaData() (*MetaT, error) {
	if !r.drained.Load() {
		return nil, ErrMetaDataNotAvailable
	}
	return r.req.metaData()
}

// Close stops the pump and releases the underlying stream. A pull already
// in flight is waited for; pending pump steps are dropped.
func (r *AsyncStreamResult[RowT, MetaT]) Close() error {
	r.closeOnce.Do(func() {
		r.cancel()

		r.lock.Lock()
		r.closed = true
		for r.running {
			r.stepDone.Wait()
		}
		r.lock.Unlock()

		r.req.queue.Abort()
		r.req.queue.Finish(&StreamingError{
			Service:         r.req.variant.Service(),
			Statement:       r.req.statement,
			ClientContextID: r.req.clientContextID,
			Cause:           r.req.variant.ClassifyError(context.Canceled),
		})
		r.wake()

		r.closeErr = r.req.close()
	})
	return r.closeErr
}

// rowCollector gathers the rows of an AsyncStreamResult for Execute. Each
// collect job takes whatever rows are queued and then parks until the pump
// makes progress again.
type rowCollector[RowT any, MetaT any] struct {
	res      *AsyncStreamResult[RowT, MetaT]
	ctx      context.Context
	out      *Future[[]RowT]
	stopWake func() bool
	rows     []RowT
}

func (c *rowCollector[RowT, MetaT]) collect() {
	r := c.res

	for {
		if err := c.ctx.Err(); err != nil {
			c.stopWake()
			_ = r.Close()
			c.out.Reject(err)
			return
		}

		if row, ok := r.req.queue.TryPop(); ok {
			c.rows = append(c.rows, row)
			r.kick()
			continue
		}

		if r.req.queue.IsFinished() && r.req.queue.Len() == 0 {
			c.stopWake()
			r.drained.Store(true)
			if err := r.req.queue.FinishErr(); err != nil {
				c.out.Reject(err)
				return
			}
			c.out.Resolve(c.rows)
			return
		}

		if r.await(c.collect) {
			if c.ctx.Err() != nil {
				r.wake()
			}
			return
		}
	}
}
