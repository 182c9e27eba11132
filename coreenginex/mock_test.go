package coreenginex

import (
	"github.com/couchbase/gocbcore/v10"
	"github.com/stretchr/testify/mock"
)

type mockAgent struct {
	mock.Mock
}

func (_m *mockAgent) N1QLQuery(opts gocbcore.N1QLQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	ret := _m.Called(opts, cb)
	op, _ := ret.Get(0).(gocbcore.PendingOp)
	return op, ret.Error(1)
}

func (_m *mockAgent) AnalyticsQuery(opts gocbcore.AnalyticsQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	ret := _m.Called(opts, cb)
	op, _ := ret.Get(0).(gocbcore.PendingOp)
	return op, ret.Error(1)
}

func (_m *mockAgent) SearchQuery(opts gocbcore.SearchQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	ret := _m.Called(opts, cb)
	op, _ := ret.Get(0).(gocbcore.PendingOp)
	return op, ret.Error(1)
}

func (_m *mockAgent) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

type mockPendingOp struct {
	mock.Mock
}

func (_m *mockPendingOp) Cancel() {
	_m.Called()
}

type fakeRowReader struct {
	rows     [][]byte
	err      error
	meta     []byte
	metaErr  error
	closed   int
	closeErr error
}

func (r *fakeRowReader) NextRow() []byte {
	if len(r.rows) == 0 {
		return nil
	}
	row := r.rows[0]
	r.rows = r.rows[1:]
	return row
}

func (r *fakeRowReader) Err() error {
	return r.err
}

func (r *fakeRowReader) MetaData() ([]byte, error) {
	return r.meta, r.metaErr
}

func (r *fakeRowReader) Close() error {
	r.closed++
	return r.closeErr
}
