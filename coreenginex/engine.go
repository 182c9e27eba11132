// Package coreenginex implements a native engine on top of a gocbcore
// agent group, which owns cluster topology, retries and connection pooling.
package coreenginex

import (
	"context"

	"github.com/couchbase/gocbcore/v10"
	"github.com/couchbase/gocbstreamx/futurex"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/couchbase/gocbstreamx/zaputils"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type EngineOptions struct {
	Logger    *zap.Logger
	UserAgent string
	ConnStr   string
	Username  string
	Password  string
}

// Engine submits requests through a gocbcore agent group.
type Engine struct {
	logger *zap.Logger
	agent  coreAgent
	closed atomic.Bool
}

var _ nativex.Engine = (*Engine)(nil)

// NewEngine connects a new agent group described by opts.ConnStr.
func NewEngine(opts *EngineOptions) (*Engine, error) {
	if opts == nil {
		return nil, errors.New("engine options are required")
	}

	config := &gocbcore.AgentGroupConfig{
		AgentConfig: gocbcore.AgentConfig{
			UserAgent: opts.UserAgent,
		},
	}

	if err := config.FromConnStr(opts.ConnStr); err != nil {
		return nil, errors.Wrap(err, "failed to apply connection string")
	}

	config.SecurityConfig.Auth = &gocbcore.PasswordAuthProvider{
		Username: opts.Username,
		Password: opts.Password,
	}

	agentGroup, err := gocbcore.CreateAgentGroup(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create agent group")
	}

	return newEngine(&agentGroupAgent{agentGroup: agentGroup}, opts.Logger), nil
}

func newEngine(agent coreAgent, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		logger: logger,
		agent:  agent,
	}
}

func (e *Engine) dispatch(req *nativex.SubmitRequest, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	switch req.Service {
	case nativex.QueryService:
		return e.agent.N1QLQuery(gocbcore.N1QLQueryOptions{
			Payload:  req.Payload,
			Deadline: req.Deadline,
		}, cb)
	case nativex.AnalyticsService:
		return e.agent.AnalyticsQuery(gocbcore.AnalyticsQueryOptions{
			Payload:  req.Payload,
			Priority: req.Priority,
			Deadline: req.Deadline,
		}, cb)
	case nativex.SearchService:
		return e.agent.SearchQuery(gocbcore.SearchQueryOptions{
			IndexName:  req.IndexName,
			Payload:    req.Payload,
			Deadline:   req.Deadline,
			BucketName: req.BucketName,
			ScopeName:  req.ScopeName,
		}, cb)
	}

	return nil, errors.Errorf("unsupported service type %s", req.Service)
}

func (e *Engine) Submit(ctx context.Context, req *nativex.SubmitRequest) (nativex.StreamHandle, error) {
	if e.closed.Load() {
		return nil, nativex.ErrEngineClosed
	}

	logger := e.logger.With(
		zaputils.Request("request", req.Service.String(), req.ClientContextID, req.Statement))

	var pendingOp gocbcore.PendingOp
	readerFuture := futurex.BridgeCallback(func(cb func(rowReader, error)) error {
		op, err := e.dispatch(req, cb)
		if err != nil {
			return err
		}
		pendingOp = op
		return nil
	})

	reader, err := readerFuture.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil && pendingOp != nil {
			logger.Debug("cancelling request after context completion", zap.Error(ctx.Err()))
			pendingOp.Cancel()

			// a reader may still arrive and must be released
			lateReader, lateErr := readerFuture.Wait(context.Background())
			if lateErr == nil {
				_ = lateReader.Close()
			}

			return nil, &nativex.NativeError{Service: req.Service, Cause: errors.WithStack(ctx.Err())}
		}

		logger.Debug("request dispatch failed", zap.Error(err))
		return nil, convertError(req.Service, err)
	}

	return &streamHandle{
		service: req.Service,
		reader:  reader,
	}, nil
}

// Close shuts down the underlying agent group.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nativex.ErrEngineClosed
	}
	return e.agent.Close()
}
