package gocbstreamx

import (
	"context"
	"iter"

	"go.uber.org/atomic"
)

// StreamResult is the blocking form of a streaming result. Rows are pulled
// from the engine on the calling goroutine as they are consumed, and can
// only be consumed once.
//
// A StreamResult must not be used from multiple goroutines at once.
type StreamResult[RowT any, MetaT any] struct {
	req      *streamingRequest[RowT, MetaT]
	ctx      context.Context
	iterated atomic.Bool

	cursorActive bool
	row          RowT
	err          error
}

func newStreamResult[RowT any, MetaT any](ctx context.Context, req *streamingRequest[RowT, MetaT]) *StreamResult[RowT, MetaT] {
	return &StreamResult[RowT, MetaT]{
		req: req,
		ctx: ctx,
	}
}

func (r *StreamResult[RowT, MetaT]) beginIteration() error {
	if !r.iterated.CompareAndSwap(false, true) {
		return ErrPreviouslyIterated
	}
	return nil
}

// Rows returns an iterator over the rows of the result. Iteration stops at
// the first error, which is yielded alongside a zero row. Calling Rows a
// second time yields only ErrPreviouslyIterated.
func (r *StreamResult[RowT, MetaT]) Rows() iter.Seq2[RowT, error] {
	return func(yield func(RowT, error) bool) {
		var zero RowT

		if err := r.beginIteration(); err != nil {
			yield(zero, err)
			return
		}

		for {
			row, ok, err := r.req.next(r.ctx)
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Next advances to the next row, reporting false once the rows are
// exhausted or an error occurred. Check Err afterwards.
func (r *StreamResult[RowT, MetaT]) Next() bool {
	if r.err != nil {
		return false
	}

	if !r.cursorActive {
		if err := r.beginIteration(); err != nil {
			r.err = err
			return false
		}
		r.cursorActive = true
	}

	row, ok, err := r.req.next(r.ctx)
	if err != nil {
		r.err = err
		return false
	}
	if !ok {
		var zero RowT
		r.row = zero
		return false
	}

	r.row = row
	return true
}

// Row returns the row the cursor is positioned on.
func (r *StreamResult[RowT, MetaT]) Row() RowT {
	return r.row
}

// Err returns the error which stopped Next, if any.
func (r *StreamResult[RowT, MetaT]) Err() error {
	return r.err
}

// One returns the first row and discards the rest. The remaining rows are
// still read so that the metadata becomes available.
func (r *StreamResult[RowT, MetaT]) One() (RowT, error) {
	var zero RowT

	if err := r.beginIteration(); err != nil {
		return zero, err
	}

	row, ok, err := r.req.next(r.ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrNoResult
	}

	for {
		_, ok, err := r.req.next(r.ctx)
		if err != nil {
			return zero, err
		}
		if !ok {
			break
		}
	}

	return row, nil
}

// Execute reads every row into memory.
func (r *StreamResult[RowT, MetaT]) Execute() ([]RowT, error) {
	var rows []RowT
	for row, err := range r.Rows() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MetaData returns the response metadata. It is only available once every
// row has been read and the request completed successfully.
func (r *StreamResult[RowT, MetaT]) MetaData() (*MetaT, error) {
	return r.req.metaData()
}

// Close releases the underlying stream. It is safe to call Close after the
// rows have been exhausted.
func (r *StreamResult[RowT, MetaT]) Close() error {
	return r.req.close()
}
