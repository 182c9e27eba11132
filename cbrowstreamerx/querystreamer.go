// Package cbrowstreamerx streams rows out of a JSON response body while
// keeping the surrounding attributes for the caller as metadata.
package cbrowstreamerx

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/couchbase/gocbstreamx/cbhttpx"
	"go.uber.org/zap"
)

var (
	ErrNoRows          = errors.New("no rows in result")
	ErrMetaDataPending = errors.New("cannot read meta-data until after all rows are read")
)

// QueryStreamer reads rows from a body of the form
// {..., "<rowsAttrib>": [rows...], ...}. It is safe for concurrent use.
type QueryStreamer struct {
	logger *zap.Logger

	lock     sync.Mutex
	stream   io.ReadCloser
	streamer cbhttpx.RawJsonRowStreamer
	prelude  json.RawMessage
	meta     []byte
	err      error
}

func NewQueryStreamer(stream io.ReadCloser, rowsAttrib string, logger *zap.Logger) (*QueryStreamer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &QueryStreamer{
		logger: logger,
		stream: stream,
		streamer: cbhttpx.RawJsonRowStreamer{
			Decoder:    json.NewDecoder(stream),
			RowsAttrib: rowsAttrib,
		},
	}

	prelude, err := s.streamer.ReadPrelude()
	if err != nil {
		_ = stream.Close()
		return nil, err
	}
	s.prelude = prelude

	return s, nil
}

// Prelude returns the attributes that preceded the rows.
func (s *QueryStreamer) Prelude() json.RawMessage {
	return s.prelude
}

// NextRow returns the next row, or nil when there are no more rows or an
// error occurred. Err distinguishes the two.
func (s *QueryStreamer) NextRow() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.nextRowLocked()
}

func (s *QueryStreamer) nextRowLocked() []byte {
	if s.err != nil || s.meta != nil {
		return nil
	}

	if !s.streamer.HasMoreRows() {
		s.finishLocked()
		return nil
	}

	row, err := s.streamer.ReadRow()
	if err != nil {
		s.logger.Debug("failed to read row from stream", zap.Error(err))
		s.err = err
		return nil
	}

	return []byte(row)
}

func (s *QueryStreamer) finishLocked() {
	epilog, err := s.streamer.ReadEpilog()
	if err != nil {
		s.logger.Debug("failed to read epilog from stream", zap.Error(err))
		s.err = err
		return
	}

	s.meta = []byte(epilog)

	// closing here discards anything trailing on the wire
	if err := s.stream.Close(); err != nil {
		s.logger.Debug("failed to close stream after epilog", zap.Error(err))
	}
}

// One returns the first row and discards the rest.
func (s *QueryStreamer) One() ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	row := s.nextRowLocked()
	if row == nil {
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrNoRows
	}

	for s.nextRowLocked() != nil {
	}

	if s.err != nil {
		return nil, s.err
	}

	return row, nil
}

// MetaData returns every non-row attribute once all rows have been read.
func (s *QueryStreamer) MetaData() ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if s.meta == nil {
		return nil, ErrMetaDataPending
	}

	return s.meta, nil
}

func (s *QueryStreamer) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.err
}

// Close releases the underlying stream. A stream error seen while reading
// takes precedence over the close error.
func (s *QueryStreamer) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	closeErr := s.stream.Close()
	if s.err != nil {
		return s.err
	}
	return closeErr
}
