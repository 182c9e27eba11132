package coreenginex

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/couchbase/gocbcore/v10"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func invokeCallback(reader rowReader, err error) func(args mock.Arguments) {
	return func(args mock.Arguments) {
		cb := args.Get(1).(rowReaderCallback)
		go cb(reader, err)
	}
}

func TestEngineQuerySuccess(t *testing.T) {
	reader := &fakeRowReader{
		rows: [][]byte{[]byte(`{"a":1}`), []byte(`{"a":2}`)},
		meta: []byte(`{"requestID":"r1","status":"success"}`),
	}
	deadline := time.Now().Add(time.Minute)

	agent := new(mockAgent)
	agent.On("N1QLQuery", mock.AnythingOfType("gocbcore.N1QLQueryOptions"), mock.Anything).
		Run(func(args mock.Arguments) {
			opts := args.Get(0).(gocbcore.N1QLQueryOptions)
			assert.JSONEq(t, `{"statement":"SELECT 1"}`, string(opts.Payload))
			assert.Equal(t, deadline, opts.Deadline)
			invokeCallback(reader, nil)(args)
		}).
		Return(new(mockPendingOp), nil)

	engine := newEngine(agent, zaptest.NewLogger(t))

	handle, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service:  nativex.QueryService,
		Payload:  []byte(`{"statement":"SELECT 1"}`),
		Deadline: deadline,
	})
	require.NoError(t, err)

	row, err := handle.Pull()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(row))

	row, err = handle.Pull()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(row))

	_, err = handle.Pull()
	assert.ErrorIs(t, err, io.EOF)

	envelope, err := handle.Pull()
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestID":"r1","status":"success"}`, string(envelope))

	_, err = handle.Pull()
	assert.ErrorIs(t, err, nativex.ErrEnvelopeConsumed)

	require.NoError(t, handle.Close())
	assert.Equal(t, 1, reader.closed)
	assert.ErrorIs(t, handle.Close(), nativex.ErrHandleClosed)

	agent.AssertExpectations(t)
}

func TestEngineAnalyticsPriority(t *testing.T) {
	reader := &fakeRowReader{meta: []byte(`{}`)}

	agent := new(mockAgent)
	agent.On("AnalyticsQuery", mock.AnythingOfType("gocbcore.AnalyticsQueryOptions"), mock.Anything).
		Run(func(args mock.Arguments) {
			opts := args.Get(0).(gocbcore.AnalyticsQueryOptions)
			assert.Equal(t, -1, opts.Priority)
			invokeCallback(reader, nil)(args)
		}).
		Return(new(mockPendingOp), nil)

	engine := newEngine(agent, nil)

	handle, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service:  nativex.AnalyticsService,
		Payload:  []byte(`{}`),
		Priority: -1,
	})
	require.NoError(t, err)

	_, err = handle.Pull()
	assert.ErrorIs(t, err, io.EOF)

	agent.AssertExpectations(t)
}

func TestEngineSearchScoped(t *testing.T) {
	reader := &fakeRowReader{meta: []byte(`{"status":{"total":1}}`)}

	agent := new(mockAgent)
	agent.On("SearchQuery", mock.AnythingOfType("gocbcore.SearchQueryOptions"), mock.Anything).
		Run(func(args mock.Arguments) {
			opts := args.Get(0).(gocbcore.SearchQueryOptions)
			assert.Equal(t, "travel-index", opts.IndexName)
			assert.Equal(t, "travel-sample", opts.BucketName)
			assert.Equal(t, "inventory", opts.ScopeName)
			invokeCallback(reader, nil)(args)
		}).
		Return(new(mockPendingOp), nil)

	engine := newEngine(agent, nil)

	_, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service:    nativex.SearchService,
		Payload:    []byte(`{}`),
		IndexName:  "travel-index",
		BucketName: "travel-sample",
		ScopeName:  "inventory",
	})
	require.NoError(t, err)

	agent.AssertExpectations(t)
}

func TestEngineDispatchError(t *testing.T) {
	agent := new(mockAgent)
	agent.On("N1QLQuery", mock.Anything, mock.Anything).
		Return(nil, &gocbcore.N1QLError{
			Endpoint:         "http://localhost:8093",
			HTTPResponseCode: 400,
			Errors:           []gocbcore.N1QLErrorDesc{{Code: 3000, Message: "syntax error"}},
		})

	engine := newEngine(agent, nil)

	_, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service: nativex.QueryService,
		Payload: []byte(`{}`),
	})

	var nativeErr *nativex.NativeError
	require.ErrorAs(t, err, &nativeErr)
	assert.Equal(t, nativex.QueryService, nativeErr.Service)
	assert.Equal(t, 400, nativeErr.StatusCode)
	assert.Equal(t, "http://localhost:8093", nativeErr.Endpoint)
	require.Len(t, nativeErr.Descs, 1)
	assert.Equal(t, uint32(3000), nativeErr.Descs[0].Code)
	assert.Equal(t, "syntax error", nativeErr.Descs[0].Message)
}

func TestEngineCallbackError(t *testing.T) {
	agent := new(mockAgent)
	agent.On("AnalyticsQuery", mock.Anything, mock.Anything).
		Run(invokeCallback(nil, &gocbcore.AnalyticsError{
			Endpoint: "http://localhost:8095",
			Errors:   []gocbcore.AnalyticsErrorDesc{{Code: 24045, Message: "dataset not found"}},
		})).
		Return(new(mockPendingOp), nil)

	engine := newEngine(agent, nil)

	_, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service: nativex.AnalyticsService,
		Payload: []byte(`{}`),
	})

	var nativeErr *nativex.NativeError
	require.ErrorAs(t, err, &nativeErr)
	assert.Equal(t, nativex.AnalyticsService, nativeErr.Service)
	require.NotNil(t, nativeErr.FirstDesc())
	assert.Equal(t, uint32(24045), nativeErr.FirstDesc().Code)
}

func TestEngineStreamError(t *testing.T) {
	reader := &fakeRowReader{
		rows: [][]byte{[]byte(`{"a":1}`)},
		err: &gocbcore.N1QLError{
			Errors: []gocbcore.N1QLErrorDesc{{Code: 1080, Message: "timeout"}},
		},
	}

	agent := new(mockAgent)
	agent.On("N1QLQuery", mock.Anything, mock.Anything).
		Run(invokeCallback(reader, nil)).
		Return(new(mockPendingOp), nil)

	engine := newEngine(agent, nil)

	handle, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service: nativex.QueryService,
		Payload: []byte(`{}`),
	})
	require.NoError(t, err)

	_, err = handle.Pull()
	require.NoError(t, err)

	_, err = handle.Pull()
	var nativeErr *nativex.NativeError
	require.ErrorAs(t, err, &nativeErr)
	assert.Equal(t, uint32(1080), nativeErr.FirstDesc().Code)

	// the envelope pull repeats the failure since there is no envelope
	_, envErr := handle.Pull()
	assert.Equal(t, err, envErr)

	require.NoError(t, handle.Close())
}

func TestEngineSearchErrorConversion(t *testing.T) {
	err := convertError(nativex.SearchService, &gocbcore.SearchError{
		ErrorText:        "index not found",
		HTTPResponseCode: 400,
		IndexName:        "missing",
	})

	var nativeErr *nativex.NativeError
	require.ErrorAs(t, err, &nativeErr)
	assert.Equal(t, 400, nativeErr.StatusCode)
	require.Len(t, nativeErr.Descs, 1)
	assert.Equal(t, "index not found", nativeErr.Descs[0].Message)
}

func TestEngineUnknownErrorConversion(t *testing.T) {
	cause := errors.New("connection reset")
	err := convertError(nativex.QueryService, cause)

	var nativeErr *nativex.NativeError
	require.ErrorAs(t, err, &nativeErr)
	assert.Empty(t, nativeErr.Descs)
	assert.ErrorIs(t, err, cause)
}

func TestEngineContextCancelled(t *testing.T) {
	reader := &fakeRowReader{}

	var cb rowReaderCallback
	op := new(mockPendingOp)
	op.On("Cancel").Run(func(args mock.Arguments) {
		// the reader lands after cancellation and must still be released
		go cb(reader, nil)
	}).Return()

	agent := new(mockAgent)
	agent.On("N1QLQuery", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cb = args.Get(1).(rowReaderCallback)
		}).
		Return(op, nil)

	engine := newEngine(agent, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := engine.Submit(ctx, &nativex.SubmitRequest{
		Service: nativex.QueryService,
		Payload: []byte(`{}`),
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var nativeErr *nativex.NativeError
	assert.ErrorAs(t, err, &nativeErr)

	op.AssertCalled(t, "Cancel")
	assert.Equal(t, 1, reader.closed)
}

func TestEngineClose(t *testing.T) {
	agent := new(mockAgent)
	agent.On("Close").Return(nil).Once()

	engine := newEngine(agent, nil)

	require.NoError(t, engine.Close())
	assert.ErrorIs(t, engine.Close(), nativex.ErrEngineClosed)

	_, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service: nativex.QueryService,
	})
	assert.ErrorIs(t, err, nativex.ErrEngineClosed)

	agent.AssertExpectations(t)
}

func TestEngineUnsupportedService(t *testing.T) {
	engine := newEngine(new(mockAgent), nil)

	_, err := engine.Submit(context.Background(), &nativex.SubmitRequest{
		Service: nativex.ServiceType(99),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported service type")
}
