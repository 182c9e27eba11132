// Package httpenginex implements a native engine which talks to the query,
// analytics and search services over their HTTP APIs.
package httpenginex

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/couchbase/gocbstreamx/cbhttpx"
	"github.com/couchbase/gocbstreamx/cbrowstreamerx"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/couchbase/gocbstreamx/zaputils"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var ErrServiceNotAvailable = errors.New("service not available")

type EngineOptions struct {
	Logger        *zap.Logger
	UserAgent     string
	Transport     http.RoundTripper
	Authenticator cbhttpx.Authenticator

	QueryEndpoints     []string
	AnalyticsEndpoints []string
	SearchEndpoints    []string
}

// Engine submits requests to a randomly selected endpoint of the target
// service. Endpoints can be replaced at any time with Reconfigure.
type Engine struct {
	logger    *zap.Logger
	userAgent string
	client    cbhttpx.Client
	auth      cbhttpx.Authenticator

	lock      sync.RWMutex
	endpoints map[nativex.ServiceType][]string

	closed atomic.Bool
}

var _ nativex.Engine = (*Engine)(nil)

func NewEngine(opts *EngineOptions) (*Engine, error) {
	if opts == nil {
		opts = &EngineOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	e := &Engine{
		logger:    logger,
		userAgent: opts.UserAgent,
		client:    cbhttpx.Client{Transport: transport},
		auth:      opts.Authenticator,
		endpoints: map[nativex.ServiceType][]string{
			nativex.QueryService:     opts.QueryEndpoints,
			nativex.AnalyticsService: opts.AnalyticsEndpoints,
			nativex.SearchService:    opts.SearchEndpoints,
		},
	}

	return e, nil
}

// Reconfigure replaces the endpoints used for a service. Requests already
// in flight are unaffected.
func (e *Engine) Reconfigure(service nativex.ServiceType, endpoints []string) {
	e.lock.Lock()
	e.endpoints[service] = endpoints
	e.lock.Unlock()

	e.logger.Debug("reconfigured service endpoints",
		zaputils.Service("service", service),
		zap.Strings("endpoints", endpoints))
}

func (e *Engine) selectEndpoint(service nativex.ServiceType) (string, error) {
	e.lock.RLock()
	endpoints := e.endpoints[service]
	e.lock.RUnlock()

	if len(endpoints) == 0 {
		return "", ErrServiceNotAvailable
	}

	// pick a random endpoint to attempt
	return endpoints[rand.Intn(len(endpoints))], nil
}

func requestPath(req *nativex.SubmitRequest) (string, string, error) {
	switch req.Service {
	case nativex.QueryService:
		return "/query/service", "results", nil
	case nativex.AnalyticsService:
		return "/analytics/service", "results", nil
	case nativex.SearchService:
		if req.IndexName == "" {
			return "", "", errors.New("search requests require an index name")
		}
		if req.BucketName != "" && req.ScopeName != "" {
			return "/api/bucket/" + url.PathEscape(req.BucketName) +
				"/scope/" + url.PathEscape(req.ScopeName) +
				"/index/" + url.PathEscape(req.IndexName) + "/query", "hits", nil
		}
		return "/api/index/" + url.PathEscape(req.IndexName) + "/query", "hits", nil
	}

	return "", "", errors.Errorf("unsupported service type %s", req.Service)
}

func (e *Engine) Submit(ctx context.Context, req *nativex.SubmitRequest) (nativex.StreamHandle, error) {
	if e.closed.Load() {
		return nil, nativex.ErrEngineClosed
	}

	path, rowsAttrib, err := requestPath(req)
	if err != nil {
		return nil, &nativex.NativeError{Service: req.Service, Cause: err}
	}

	endpoint, err := e.selectEndpoint(req.Service)
	if err != nil {
		return nil, &nativex.NativeError{Service: req.Service, Cause: err}
	}

	var cancel context.CancelFunc
	if !req.Deadline.IsZero() {
		ctx, cancel = context.WithDeadline(ctx, req.Deadline)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	headers := make(map[string]string)
	if req.Service == nativex.AnalyticsService && req.Priority != 0 {
		headers["Analytics-Priority"] = strconv.Itoa(req.Priority)
	}

	httpReq, err := cbhttpx.RequestBuilder{
		UserAgent: e.userAgent,
		Endpoint:  endpoint,
		Auth:      e.auth,
	}.NewRequest(ctx, "POST", path, "application/json", headers, bytes.NewReader(req.Payload))
	if err != nil {
		cancel()
		return nil, &nativex.NativeError{Service: req.Service, Endpoint: endpoint, Cause: errors.WithStack(err)}
	}

	logger := e.logger.With(
		zaputils.Request("request", req.Service.String(), req.ClientContextID, req.Statement),
		zap.String("endpoint", endpoint))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		cancel()
		logger.Debug("failed to send request", zap.Error(err))
		return nil, &nativex.NativeError{Service: req.Service, Endpoint: endpoint, Cause: errors.WithStack(err)}
	}

	if resp.StatusCode != 200 {
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		cancel()

		if readErr != nil {
			return nil, &nativex.NativeError{
				Service:    req.Service,
				StatusCode: resp.StatusCode,
				Endpoint:   endpoint,
				Cause:      errors.Wrap(readErr, "failed to read error response"),
			}
		}

		logger.Debug("request rejected", zap.Int("status", resp.StatusCode))
		return nil, parseErrorBody(req.Service, resp.StatusCode, endpoint, body)
	}

	streamer, err := cbrowstreamerx.NewQueryStreamer(resp.Body, rowsAttrib, logger)
	if err != nil {
		cancel()
		return nil, &nativex.NativeError{
			Service:    req.Service,
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Cause:      errors.Wrap(err, "failed to read response prelude"),
		}
	}

	return &streamHandle{
		logger:     logger,
		service:    req.Service,
		endpoint:   endpoint,
		statusCode: resp.StatusCode,
		streamer:   streamer,
		cancel:     cancel,
	}, nil
}

// Close stops the engine accepting new requests. Requests already in flight
// continue until their handles are closed.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nativex.ErrEngineClosed
	}
	return nil
}
