package leakcheck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

var leakTrackingEnabled atomic.Bool
var trackedRespsLock sync.Mutex
var trackedResps []*leakTrackingReadCloser

func EnableHttpResponseTracking() {
	leakTrackingEnabled.Store(true)
}

// WrapHttpResponse records the response body until it is closed or fully
// read, when tracking is enabled.
func WrapHttpResponse(resp *http.Response) *http.Response {
	if !leakTrackingEnabled.Load() {
		return resp
	}

	trackingBody := &leakTrackingReadCloser{
		parent:     resp.Body,
		stackTrace: debug.Stack(),
	}

	trackedRespsLock.Lock()
	trackedResps = append(trackedResps, trackingBody)
	trackedRespsLock.Unlock()

	resp.Body = trackingBody
	return resp
}

func removeTrackedHttpBodyRecord(l *leakTrackingReadCloser) {
	trackedRespsLock.Lock()
	recordIdx := slices.Index(trackedResps, l)
	if recordIdx >= 0 {
		trackedResps = slices.Delete(trackedResps, recordIdx, recordIdx+1)
	}
	trackedRespsLock.Unlock()
}

// NumTrackedHttpResponses returns the number of response bodies that are
// currently open.
func NumTrackedHttpResponses() int {
	trackedRespsLock.Lock()
	defer trackedRespsLock.Unlock()
	return len(trackedResps)
}

func ReportLeakedHttpResponses(logger *zap.Logger) bool {
	trackedRespsLock.Lock()
	defer trackedRespsLock.Unlock()

	if len(trackedResps) == 0 {
		logger.Debug("no leaked http responses")
		return true
	}

	logger.Error("found leaked http responses", zap.Int("count", len(trackedResps)))
	for _, leakRecord := range trackedResps {
		logger.Error("leaked http response", zap.ByteString("stack", leakRecord.stackTrace))
	}

	return false
}

type leakTrackingReadCloser struct {
	parent     io.ReadCloser
	stackTrace []byte
}

func (l *leakTrackingReadCloser) Read(p []byte) (int, error) {
	n, err := l.parent.Read(p)
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		removeTrackedHttpBodyRecord(l)
	}
	return n, err
}

func (l *leakTrackingReadCloser) Close() error {
	removeTrackedHttpBodyRecord(l)
	return l.parent.Close()
}

var _ io.ReadCloser = (*leakTrackingReadCloser)(nil)
