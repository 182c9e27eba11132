package gocbstreamx

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/couchbase/gocbstreamx/zaputils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type streamState int32

const (
	stateNotStarted streamState = iota
	stateStreaming
	stateDone
)

func (s streamState) String() string {
	switch s {
	case stateNotStarted:
		return "not-started"
	case stateStreaming:
		return "streaming"
	case stateDone:
		return "done"
	}
	return "unknown"
}

type streamingRequestOptions struct {
	Logger     *zap.Logger
	Engine     nativex.Engine
	Serializer Serializer
	Params     nativex.Params

	// Timeout takes precedence over any timeout found in Params. When
	// neither is set DefaultTimeout applies.
	Timeout        time.Duration
	DefaultTimeout time.Duration
	QueueSize      int

	Priority   int
	IndexName  string
	BucketName string
	ScopeName  string
}

// streamingRequest drives a single request against the engine: it submits
// once, pulls rows one at a time into a bounded queue, and on the end of
// the stream pulls the response envelope exactly once to build the
// metadata.
//
// Submission, pulling and closing are owned by one goroutine at a time
// (the caller for blocking results, the current pump step for async ones).
// Only the
// state and metadata may be observed concurrently.
type streamingRequest[RowT any, MetaT any] struct {
	logger     *zap.Logger
	engine     nativex.Engine
	serializer Serializer
	variant    streamVariant[RowT, MetaT]
	opts       streamingRequestOptions

	statement       string
	clientContextID string

	state        atomic.Int32
	submitErr    error
	handle       nativex.StreamHandle
	handleClosed bool
	queue        *rowQueue[RowT]
	meta         atomic.Pointer[MetaT]
	numRows      atomic.Int64

	telemCtx  context.Context
	span      trace.Span
	attribs   attribute.Set
	startTime time.Time
	finished  bool
}

func newStreamingRequest[RowT any, MetaT any](
	variant streamVariant[RowT, MetaT],
	opts streamingRequestOptions,
) *streamingRequest[RowT, MetaT] {
	statement := opts.Params.String("statement")
	clientContextID := opts.Params.String("client_context_id")

	logger := loggerOrNop(opts.Logger).With(
		zaputils.Request("request", variant.Service().String(), clientContextID, statement))
	if opts.IndexName != "" {
		logger = logger.With(zaputils.IndexName("index", opts.IndexName))
	}

	return &streamingRequest[RowT, MetaT]{
		logger:          logger,
		engine:          opts.Engine,
		serializer:      serializerOrDefault(opts.Serializer),
		variant:         variant,
		opts:            opts,
		statement:       statement,
		clientContextID: clientContextID,
		queue:           newRowQueue[RowT](opts.QueueSize),
	}
}

func (r *streamingRequest[RowT, MetaT]) currentState() streamState {
	return streamState(r.state.Load())
}

func (r *streamingRequest[RowT, MetaT]) isDone() bool {
	return r.currentState() == stateDone
}

func (r *streamingRequest[RowT, MetaT]) timeout() time.Duration {
	if r.opts.Timeout > 0 {
		return r.opts.Timeout
	}
	if timeout, ok := r.opts.Params.Timeout(); ok {
		return timeout
	}
	return r.opts.DefaultTimeout
}

// submit hands the request to the engine. Only the first call does any
// work; later calls return the outcome of the first.
func (r *streamingRequest[RowT, MetaT]) submit(ctx context.Context) error {
	if r.currentState() != stateNotStarted {
		return r.submitErr
	}

	r.beginTelemetry(ctx)

	payload, err := r.opts.Params.Encode()
	if err != nil {
		return r.rejectSubmission(invalidArgumentError{Message: "failed to encode request params: " + err.Error()})
	}

	req := &nativex.SubmitRequest{
		Service:         r.variant.Service(),
		Payload:         payload,
		Statement:       r.statement,
		ClientContextID: r.clientContextID,
		Priority:        r.opts.Priority,
		IndexName:       r.opts.IndexName,
		BucketName:      r.opts.BucketName,
		ScopeName:       r.opts.ScopeName,
	}
	if timeout := r.timeout(); timeout > 0 {
		req.Deadline = time.Now().Add(timeout)
	}

	r.logger.Debug("submitting request", zap.Time("deadline", req.Deadline))

	handle, err := r.engine.Submit(r.telemCtx, req)
	if err != nil {
		return r.rejectSubmission(r.variant.ClassifyError(err))
	}

	r.handle = handle
	r.state.Store(int32(stateStreaming))
	return nil
}

func (r *streamingRequest[RowT, MetaT]) rejectSubmission(cause error) error {
	r.state.Store(int32(stateDone))
	r.submitErr = &SubmissionError{
		Service:         r.variant.Service(),
		Statement:       r.statement,
		ClientContextID: r.clientContextID,
		Cause:           cause,
	}

	r.logger.Debug("request submission failed", zap.Error(r.submitErr))
	r.endTelemetry(r.submitErr)
	return r.submitErr
}

// nextRow performs exactly one pull against the native handle. It reports
// whether a row was pushed onto the queue. Once the request is done it
// returns false without pulling.
func (r *streamingRequest[RowT, MetaT]) nextRow(ctx context.Context) (bool, error) {
	switch r.currentState() {
	case stateNotStarted:
		return false, internalError{Reason: illegalStateError{Message: "rows requested before submission"}}
	case stateDone:
		return false, nil
	}

	raw, err := r.handle.Pull()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, r.finalize()
		}
		return false, r.fail(r.variant.ClassifyError(err), true)
	}

	row, err := r.variant.DecodeRow(raw, r.serializer)
	if err != nil {
		return false, r.fail(err, false)
	}

	if err := r.queue.Push(ctx, row); err != nil {
		if errors.Is(err, errQueueAborted) {
			err = context.Canceled
		}
		return false, r.fail(r.variant.ClassifyError(err), false)
	}

	r.numRows.Inc()
	return true, nil
}

// finalize runs after the end-of-stream sentinel: the next pull yields the
// response envelope, which is parsed into the metadata.
func (r *streamingRequest[RowT, MetaT]) finalize() error {
	r.state.Store(int32(stateDone))

	envelope, err := r.handle.Pull()
	r.closeHandle()
	if err != nil {
		return r.finalizeFailed(r.variant.ClassifyError(err))
	}

	meta, err := r.variant.ParseMetaData(envelope, r.logger)
	if err != nil {
		return r.finalizeFailed(err)
	}

	r.meta.Store(meta)
	r.logger.Debug("request completed", zap.Int64("rows", r.numRows.Load()))
	r.endTelemetry(nil)
	return nil
}

func (r *streamingRequest[RowT, MetaT]) finalizeFailed(cause error) error {
	err := &StreamingError{
		Service:         r.variant.Service(),
		Statement:       r.statement,
		ClientContextID: r.clientContextID,
		Finalizing:      true,
		Cause:           cause,
	}

	r.logger.Debug("failed to read response metadata", zap.Error(err))
	r.endTelemetry(err)
	return err
}

// fail terminates the request after a mid-stream failure. When the engine
// itself reported the failure the envelope is still pulled so the engine can
// release the response, but nothing it yields is exposed as metadata. Any
// other failure leaves rows unread, so the handle is only closed.
func (r *streamingRequest[RowT, MetaT]) fail(cause error, pullEnvelope bool) error {
	r.state.Store(int32(stateDone))

	if pullEnvelope {
		if _, err := r.handle.Pull(); err != nil {
			r.logger.Debug("ignoring envelope read failure after stream error", zap.Error(err))
		}
	}
	r.closeHandle()

	err := &StreamingError{
		Service:         r.variant.Service(),
		Statement:       r.statement,
		ClientContextID: r.clientContextID,
		Cause:           cause,
	}

	r.logger.Debug("request failed while streaming", zap.Error(err))
	r.endTelemetry(err)
	return err
}

// next returns the next row of the request, pulling from the engine
// whenever the queue is empty.
func (r *streamingRequest[RowT, MetaT]) next(ctx context.Context) (RowT, bool, error) {
	if row, ok := r.queue.TryPop(); ok {
		return row, true, nil
	}

	for {
		var zero RowT

		if r.isDone() {
			return zero, false, nil
		}

		produced, err := r.nextRow(ctx)
		if err != nil {
			return zero, false, err
		}
		if !produced {
			continue
		}

		row, ok := r.queue.TryPop()
		if !ok {
			err := internalError{Reason: illegalStateError{Message: "row queue was empty after a row was produced"}}
			r.logger.Error("row queue did not return the row that was just pushed", zap.Error(err))
			return zero, false, err
		}
		return row, true, nil
	}
}

func (r *streamingRequest[RowT, MetaT]) metaData() (*MetaT, error) {
	if !r.isDone() {
		return nil, ErrMetaDataNotAvailable
	}

	meta := r.meta.Load()
	if meta == nil {
		return nil, ErrMetaDataNotAvailable
	}
	return meta, nil
}

// close abandons the request, releasing the native handle if it is still
// open. Rows not yet read are discarded.
func (r *streamingRequest[RowT, MetaT]) close() error {
	prevState := streamState(r.state.Swap(int32(stateDone)))
	if prevState != stateStreaming {
		return nil
	}

	err := r.closeHandle()
	r.logger.Debug("request closed before completion", zap.Int64("rows", r.numRows.Load()))
	r.endTelemetry(nil)
	return err
}

func (r *streamingRequest[RowT, MetaT]) closeHandle() error {
	if r.handle == nil || r.handleClosed {
		return nil
	}
	r.handleClosed = true

	err := r.handle.Close()
	if err != nil {
		r.logger.Debug("failed to close stream handle", zap.Error(err))
	}
	return err
}

func (r *streamingRequest[RowT, MetaT]) beginTelemetry(ctx context.Context) {
	service := r.variant.Service().String()

	attribs := []attribute.KeyValue{
		semconv.DBSystemCouchbase,
		semconv.DBOperationName(service),
	}
	if r.opts.BucketName != "" {
		attribs = append(attribs, semconv.DBNamespace(r.opts.BucketName))
	}
	r.attribs = attribute.NewSet(attribs...)

	r.telemCtx, r.span = tracer.Start(ctx, service,
		trace.WithSpanKind(trace.SpanKindClient))
	if r.span.IsRecording() {
		r.span.SetAttributes(attribs...)
		if r.statement != "" {
			r.span.SetAttributes(attribute.String("db.query.text", r.statement))
		}
		if r.clientContextID != "" {
			r.span.SetAttributes(attribute.String("db.couchbase.client_context_id", r.clientContextID))
		}
		if r.opts.IndexName != "" {
			r.span.SetAttributes(attribute.String("db.couchbase.search_index", r.opts.IndexName))
		}
	}

	r.startTime = time.Now()
	streamRequests.Add(r.telemCtx, 1, metric.WithAttributeSet(r.attribs))
}

func (r *streamingRequest[RowT, MetaT]) endTelemetry(err error) {
	if r.finished || r.span == nil {
		return
	}
	r.finished = true

	dtimeSecs := float64(time.Since(r.startTime)) / float64(time.Second)
	streamDuration.Record(r.telemCtx, dtimeSecs, metric.WithAttributeSet(r.attribs))
	streamRows.Add(r.telemCtx, r.numRows.Load(), metric.WithAttributeSet(r.attribs))

	if err != nil {
		streamErrors.Add(r.telemCtx, 1, metric.WithAttributeSet(r.attribs))
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	r.span.SetAttributes(attribute.Int64("db.couchbase.rows", r.numRows.Load()))
	r.span.End()
}
