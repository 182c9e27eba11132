package gocbstreamx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errPullAfterEnvelope = errors.New("pull after envelope")

// fakeHandle replays a fixed response and counts every pull.
type fakeHandle struct {
	lock sync.Mutex

	rows        []json.RawMessage
	streamErr   error
	envelope    json.RawMessage
	envelopeErr error

	// onPull, when set, runs before each pull with the zero based pull
	// number.
	onPull func(n int)

	pos         int
	terminated  bool
	envelopeOut bool
	pulls       int
	closes      int
}

func newFakeHandle(envelope string, rows ...string) *fakeHandle {
	h := &fakeHandle{envelope: json.RawMessage(envelope)}
	for _, row := range rows {
		h.rows = append(h.rows, json.RawMessage(row))
	}
	return h
}

func (h *fakeHandle) Pull() (json.RawMessage, error) {
	h.lock.Lock()
	n := h.pulls
	h.pulls++
	onPull := h.onPull
	h.lock.Unlock()

	if onPull != nil {
		onPull(n)
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if h.pos < len(h.rows) {
		row := h.rows[h.pos]
		h.pos++
		return row, nil
	}

	if !h.terminated {
		h.terminated = true
		if h.streamErr != nil {
			return nil, h.streamErr
		}
		return nil, io.EOF
	}

	if !h.envelopeOut {
		h.envelopeOut = true
		if h.envelopeErr != nil {
			return nil, h.envelopeErr
		}
		return h.envelope, nil
	}

	return nil, errPullAfterEnvelope
}

func (h *fakeHandle) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.closes++
	return nil
}

func (h *fakeHandle) Pulls() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.pulls
}

func (h *fakeHandle) Closes() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.closes
}

// fakeEngine records submitted requests and answers them with SubmitFunc,
// or with its queued handles in order.
type fakeEngine struct {
	lock sync.Mutex

	SubmitFunc func(ctx context.Context, req *nativex.SubmitRequest) (nativex.StreamHandle, error)
	handles    []*fakeHandle
	requests   []*nativex.SubmitRequest
	closes     int
}

var _ nativex.Engine = (*fakeEngine)(nil)

func newFakeEngine(handles ...*fakeHandle) *fakeEngine {
	return &fakeEngine{handles: handles}
}

func (e *fakeEngine) Submit(ctx context.Context, req *nativex.SubmitRequest) (nativex.StreamHandle, error) {
	e.lock.Lock()
	e.requests = append(e.requests, req)
	submitFn := e.SubmitFunc
	var handle *fakeHandle
	if submitFn == nil && len(e.handles) > 0 {
		handle = e.handles[0]
		e.handles = e.handles[1:]
	}
	e.lock.Unlock()

	if submitFn != nil {
		return submitFn(ctx, req)
	}
	if handle == nil {
		return nil, errors.New("no handle queued")
	}
	return handle, nil
}

func (e *fakeEngine) Close() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.closes++
	return nil
}

func (e *fakeEngine) Requests() []*nativex.SubmitRequest {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]*nativex.SubmitRequest(nil), e.requests...)
}

func (e *fakeEngine) LastRequest(t *testing.T) *nativex.SubmitRequest {
	reqs := e.Requests()
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

func newTestCluster(t *testing.T, engine nativex.Engine, opts *ClusterOptions) *Cluster {
	if opts == nil {
		opts = &ClusterOptions{}
	}
	opts.Engine = engine
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}

	cluster, err := NewCluster(opts)
	require.NoError(t, err)
	return cluster
}

func decodeParams(t *testing.T, req *nativex.SubmitRequest) map[string]interface{} {
	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Payload, &params))
	return params
}

// serialScheduler runs jobs one at a time, in order, on a single worker
// goroutine.
type serialScheduler struct {
	lock    sync.Mutex
	cond    *sync.Cond
	jobs    []func()
	ran     int
	stopped bool
	done    chan struct{}
}

var _ Scheduler = (*serialScheduler)(nil)

func newSerialScheduler(t *testing.T) *serialScheduler {
	s := &serialScheduler{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.lock)
	go s.run()

	t.Cleanup(func() {
		s.lock.Lock()
		s.stopped = true
		s.cond.Broadcast()
		s.lock.Unlock()

		select {
		case <-s.done:
		case <-time.After(time.Second):
			t.Errorf("scheduler worker is stuck in a job")
		}
	})
	return s
}

func (s *serialScheduler) Schedule(fn func()) {
	s.lock.Lock()
	s.jobs = append(s.jobs, fn)
	s.cond.Signal()
	s.lock.Unlock()
}

func (s *serialScheduler) run() {
	defer close(s.done)

	for {
		s.lock.Lock()
		for len(s.jobs) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.jobs) == 0 {
			s.lock.Unlock()
			return
		}
		fn := s.jobs[0]
		s.jobs = s.jobs[1:]
		s.ran++
		s.lock.Unlock()

		fn()
	}
}

func (s *serialScheduler) Ran() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ran
}
