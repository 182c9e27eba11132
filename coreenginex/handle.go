package coreenginex

import (
	"encoding/json"
	"io"

	"github.com/couchbase/gocbstreamx/nativex"
)

type handleState int

const (
	handleStateRows handleState = iota
	handleStateEnvelope
	handleStateConsumed
	handleStateClosed
)

// streamHandle adapts a gocbcore row reader to the pull protocol.
type streamHandle struct {
	service nativex.ServiceType
	reader  rowReader

	state    handleState
	envelope json.RawMessage
	err      error
}

var _ nativex.StreamHandle = (*streamHandle)(nil)

func (h *streamHandle) Pull() (json.RawMessage, error) {
	switch h.state {
	case handleStateRows:
		if row := h.reader.NextRow(); row != nil {
			return row, nil
		}

		h.state = handleStateEnvelope

		if err := h.reader.Err(); err != nil {
			h.err = convertError(h.service, err)
			return nil, h.err
		}

		envelope, err := h.reader.MetaData()
		if err != nil {
			h.err = convertError(h.service, err)
			return nil, h.err
		}
		h.envelope = envelope

		return nil, io.EOF

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

func (h *streamHandle) Close() error {
	if h.state == handleStateClosed {
		return nativex.ErrHandleClosed
	}
	h.state = handleStateClosed

	return h.reader.Close()
}
