package httpenginex

import (
	"context"
	"encoding/json"
	"io"

	"github.com/couchbase/gocbstreamx/cbrowstreamerx"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type handleState int

const (
	handleStateRows handleState = iota
	handleStateEnvelope
	handleStateConsumed
	handleStateClosed
)

// streamHandle adapts a QueryStreamer to the pull protocol. Once the rows
// are exhausted a single pull reports either io.EOF or the errors found in
// the response, and the pull after that returns the envelope.
type streamHandle struct {
	logger     *zap.Logger
	service    nativex.ServiceType
	endpoint   string
	statusCode int
	streamer   *cbrowstreamerx.QueryStreamer
	cancel     context.CancelFunc

	state    handleState
	envelope json.RawMessage
	err      error
}

var _ nativex.StreamHandle = (*streamHandle)(nil)

func (h *streamHandle) Pull() (json.RawMessage, error) {
	switch h.state {
	case handleStateRows:
		return h.pullRow()
	case handleStateEnvelope:
		h.state = handleStateConsumed
		if h.envelope == nil {
			return nil, h.err
		}
		return h.envelope, nil
	case handleStateConsumed:
		return nil, nativex.ErrEnvelopeConsumed
	}

	return nil, nativex.ErrHandleClosed
}

func (h *streamHandle) pullRow() (json.RawMessage, error) {
	if row := h.streamer.NextRow(); row != nil {
		return row, nil
	}

	h.state = handleStateEnvelope

	if err := h.streamer.Err(); err != nil {
		h.err = h.streamError(errors.Wrap(err, "failed to read response stream"))
		return nil, h.err
	}

	envelope, err := h.streamer.MetaData()
	if err != nil {
		h.err = h.streamError(errors.Wrap(err, "failed to read response envelope"))
		return nil, h.err
	}
	h.envelope = envelope

	if descs := parseEnvelopeErrors(h.service, envelope); len(descs) > 0 {
		h.logger.Debug("response reported errors", zap.Int("numErrors", len(descs)))
		return nil, &nativex.NativeError{
			Service:    h.service,
			StatusCode: h.statusCode,
			Endpoint:   h.endpoint,
			Descs:      descs,
		}
	}

	return nil, io.EOF
}

func (h *streamHandle) streamError(cause error) error {
	return &nativex.NativeError{
		Service:    h.service,
		StatusCode: h.statusCode,
		Endpoint:   h.endpoint,
		Cause:      cause,
	}
}

func (h *streamHandle) Close() error {
	if h.state == handleStateClosed {
		return nativex.ErrHandleClosed
	}
	h.state = handleStateClosed

	err := h.streamer.Close()
	h.cancel()

	// a read failure has already been reported through Pull
	if err != nil && h.err != nil {
		return nil
	}
	return err
}
