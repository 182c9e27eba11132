package cbrowstreamerx

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// bodyReader is a response body which counts its closes and can fail
// reads once a number of bytes has been served.
type bodyReader struct {
	r        io.Reader
	failAt   int
	readErr  error
	closeErr error

	served int
	closes int
}

func newBody(body string) *bodyReader {
	return &bodyReader{r: strings.NewReader(body), failAt: -1}
}

func (b *bodyReader) Read(p []byte) (int, error) {
	if b.failAt >= 0 {
		remaining := b.failAt - b.served
		if remaining <= 0 {
			return 0, b.readErr
		}
		if len(p) > remaining {
			p = p[:remaining]
		}
	}

	n, err := b.r.Read(p)
	b.served += n
	return n, err
}

func (b *bodyReader) Close() error {
	b.closes++
	return b.closeErr
}

func readAllRows(s *QueryStreamer) []string {
	var rows []string
	for row := s.NextRow(); row != nil; row = s.NextRow() {
		rows = append(rows, string(row))
	}
	return rows
}

func TestQueryStreamerRowsAndMetaData(t *testing.T) {
	body := newBody(`{"requestID":"5c2a","signature":{"*":"*"},` +
		`"results":[{"name":"Couch Air"},{"name":"Sofa Wings"}],` +
		`"status":"success","metrics":{"resultCount":2}}`)

	s, err := NewQueryStreamer(body, "results", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestID":"5c2a","signature":{"*":"*"}}`, string(s.Prelude()))

	_, err = s.MetaData()
	assert.ErrorIs(t, err, ErrMetaDataPending)

	assert.Equal(t, []string{`{"name":"Couch Air"}`, `{"name":"Sofa Wings"}`}, readAllRows(s))
	assert.Nil(t, s.NextRow())

	meta, err := s.MetaData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestID":"5c2a","signature":{"*":"*"},"status":"success","metrics":{"resultCount":2}}`, string(meta))
	assert.NoError(t, s.Err())

	// the body is released as soon as the epilog has been read
	assert.Equal(t, 1, body.closes)
	require.NoError(t, s.Close())
}

func TestQueryStreamerBodies(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		rowsAttrib   string
		expectedRows []string
		expectedMeta string
	}{
		{
			name:         "EmptyRows",
			body:         `{"results":[],"status":"success"}`,
			rowsAttrib:   "results",
			expectedMeta: `{"status":"success"}`,
		},
		{
			name:         "MissingRows",
			body:         `{"errors":[{"code":3000,"msg":"syntax error"}],"status":"fatal"}`,
			rowsAttrib:   "results",
			expectedMeta: `{"errors":[{"code":3000,"msg":"syntax error"}],"status":"fatal"}`,
		},
		{
			name:         "NullRows",
			body:         `{"status":{"total":1,"failed":0},"hits":null,"total_hits":0}`,
			rowsAttrib:   "hits",
			expectedMeta: `{"status":{"total":1,"failed":0},"total_hits":0}`,
		},
		{
			name:         "SearchHits",
			body:         `{"status":{"total":1},"hits":[{"id":"hotel_1"}],"total_hits":1}`,
			rowsAttrib:   "hits",
			expectedRows: []string{`{"id":"hotel_1"}`},
			expectedMeta: `{"status":{"total":1},"total_hits":1}`,
		},
		{
			name:         "EpilogErrors",
			body:         `{"results":[{"a":1}],"errors":[{"code":1080,"msg":"Timeout 1ms exceeded"}],"status":"timeout"}`,
			rowsAttrib:   "results",
			expectedRows: []string{`{"a":1}`},
			expectedMeta: `{"errors":[{"code":1080,"msg":"Timeout 1ms exceeded"}],"status":"timeout"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewQueryStreamer(newBody(tc.body), tc.rowsAttrib, zaptest.NewLogger(t))
			require.NoError(t, err)

			assert.Equal(t, tc.expectedRows, readAllRows(s))

			meta, err := s.MetaData()
			require.NoError(t, err)
			assert.JSONEq(t, tc.expectedMeta, string(meta))
			require.NoError(t, s.Close())
		})
	}
}

func TestQueryStreamerMalformedBodies(t *testing.T) {
	t.Run("NotAnObject", func(t *testing.T) {
		body := newBody(`["results"]`)
		_, err := NewQueryStreamer(body, "results", nil)
		require.Error(t, err)
		assert.Equal(t, 1, body.closes)
	})

	t.Run("RowsNotAnArray", func(t *testing.T) {
		_, err := NewQueryStreamer(newBody(`{"results":{"a":1}}`), "results", nil)
		require.Error(t, err)
	})

	t.Run("TruncatedRow", func(t *testing.T) {
		s, err := NewQueryStreamer(newBody(`{"results":[{"a":1},{"a":`), "results", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{`{"a":1}`}, readAllRows(s))
		require.Error(t, s.Err())

		_, err = s.MetaData()
		assert.Equal(t, s.Err(), err)
		assert.Equal(t, s.Err(), s.Close())
	})
}

func TestQueryStreamerReadFailure(t *testing.T) {
	readErr := errors.New("connection reset by peer")
	body := newBody(`{"results":[{"a":1},{"a":2}],"status":"success"}`)
	body.failAt = len(`{"results":[{"a":1},`)
	body.readErr = readErr

	s, err := NewQueryStreamer(body, "results", zaptest.NewLogger(t))
	require.NoError(t, err)

	readAllRows(s)
	assert.ErrorIs(t, s.Err(), readErr)

	_, err = s.One()
	assert.ErrorIs(t, err, readErr)
}

func TestQueryStreamerOne(t *testing.T) {
	s, err := NewQueryStreamer(newBody(`{"results":[{"a":1},{"a":2},{"a":3}],"status":"success"}`), "results", nil)
	require.NoError(t, err)

	row, err := s.One()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(row))

	meta, err := s.MetaData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success"}`, string(meta))
}

func TestQueryStreamerOneNoRows(t *testing.T) {
	s, err := NewQueryStreamer(newBody(`{"results":[],"status":"success"}`), "results", nil)
	require.NoError(t, err)

	_, err = s.One()
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestQueryStreamerCloseError(t *testing.T) {
	closeErr := errors.New("close failed")
	body := newBody(`{"results":[{"a":1}],"status":"success"}`)
	body.closeErr = closeErr

	s, err := NewQueryStreamer(body, "results", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Close(), closeErr)
}
