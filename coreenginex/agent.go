package coreenginex

import (
	"github.com/couchbase/gocbcore/v10"
)

// rowReader is the part of the gocbcore row readers the engine relies on.
type rowReader interface {
	NextRow() []byte
	Err() error
	MetaData() ([]byte, error)
	Close() error
}

type rowReaderCallback func(reader rowReader, err error)

// coreAgent is the subset of gocbcore.AgentGroup used to run streaming
// requests.
type coreAgent interface {
	N1QLQuery(opts gocbcore.N1QLQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error)
	AnalyticsQuery(opts gocbcore.AnalyticsQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error)
	SearchQuery(opts gocbcore.SearchQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error)
	Close() error
}

type agentGroupAgent struct {
	agentGroup *gocbcore.AgentGroup
}

var _ coreAgent = (*agentGroupAgent)(nil)

func (a *agentGroupAgent) N1QLQuery(opts gocbcore.N1QLQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	return a.agentGroup.N1QLQuery(opts, func(reader *gocbcore.N1QLRowReader, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(reader, nil)
	})
}

func (a *agentGroupAgent) AnalyticsQuery(opts gocbcore.AnalyticsQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	return a.agentGroup.AnalyticsQuery(opts, func(reader *gocbcore.AnalyticsRowReader, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(reader, nil)
	})
}

func (a *agentGroupAgent) SearchQuery(opts gocbcore.SearchQueryOptions, cb rowReaderCallback) (gocbcore.PendingOp, error) {
	return a.agentGroup.SearchQuery(opts, func(reader *gocbcore.SearchRowReader, err error) {
		if err != nil {
			cb(nil, err)
			return
		}
		cb(reader, nil)
	})
}

func (a *agentGroupAgent) Close() error {
	return a.agentGroup.Close()
}
