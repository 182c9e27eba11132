package gocbstreamx

import (
	"context"
	"encoding/json"

	"github.com/couchbase/gocbstreamx/cbanalyticsx"
	"github.com/couchbase/gocbstreamx/futurex"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/google/uuid"
)

type AnalyticsOptions struct {
	cbanalyticsx.QueryOptions

	Serializer Serializer
}

type AnalyticsResult = StreamResult[json.RawMessage, cbanalyticsx.MetaData]
type AsyncAnalyticsResult = AsyncStreamResult[json.RawMessage, cbanalyticsx.MetaData]

func newAnalyticsRequest[RowT any](
	q Queryable,
	statement string,
	opts *AnalyticsOptions,
) (*Cluster, *streamingRequest[RowT, cbanalyticsx.MetaData], error) {
	target := q.requestTarget()
	cluster := target.cluster
	if err := cluster.checkOpen(); err != nil {
		return nil, nil, err
	}

	var analyticsOpts cbanalyticsx.QueryOptions
	var serializer Serializer
	if opts != nil {
		analyticsOpts = opts.QueryOptions
		serializer = opts.Serializer
	}

	if statement != "" {
		analyticsOpts.Statement = statement
	}
	if analyticsOpts.Statement == "" {
		return nil, nil, invalidArgumentError{Message: "a statement must be specified"}
	}
	if analyticsOpts.ClientContextId == "" {
		analyticsOpts.ClientContextId = uuid.NewString()
	}
	if analyticsOpts.QueryContext == "" {
		analyticsOpts.QueryContext = target.queryContext()
	}
	if analyticsOpts.Timeout == 0 {
		analyticsOpts.Timeout = cluster.config.analyticsTimeout
	}

	params, err := analyticsOpts.EncodeParams()
	if err != nil {
		return nil, nil, invalidArgumentError{Message: "failed to encode analytics options: " + err.Error()}
	}

	reqOpts := cluster.requestOptions(nativex.AnalyticsService, params, serializer)
	reqOpts.Priority = analyticsOpts.Priority
	reqOpts.BucketName = target.bucketName

	return cluster, newStreamingRequest[RowT, cbanalyticsx.MetaData](analyticsVariant[RowT]{}, reqOpts), nil
}

// AnalyticsQuery executes an analytics statement, decoding each row into
// RowT.
func AnalyticsQuery[RowT any](
	ctx context.Context,
	q Queryable,
	statement string,
	opts *AnalyticsOptions,
) (*StreamResult[RowT, cbanalyticsx.MetaData], error) {
	_, req, err := newAnalyticsRequest[RowT](q, statement, opts)
	if err != nil {
		return nil, err
	}

	if err := req.submit(ctx); err != nil {
		return nil, err
	}

	return newStreamResult(ctx, req), nil
}

func AnalyticsQueryAsync[RowT any](
	ctx context.Context,
	q Queryable,
	statement string,
	opts *AnalyticsOptions,
) *Future[*AsyncStreamResult[RowT, cbanalyticsx.MetaData]] {
	cluster, req, err := newAnalyticsRequest[RowT](q, statement, opts)
	if err != nil {
		return futurex.Rejected[*AsyncStreamResult[RowT, cbanalyticsx.MetaData]](err)
	}

	return startAsyncStreamResult(ctx, req, cluster.sched)
}

func (c *Cluster) AnalyticsQuery(ctx context.Context, statement string, opts *AnalyticsOptions) (*AnalyticsResult, error) {
	return AnalyticsQuery[json.RawMessage](ctx, c, statement, opts)
}

func (c *Cluster) AnalyticsQueryAsync(ctx context.Context, statement string, opts *AnalyticsOptions) *Future[*AsyncAnalyticsResult] {
	return AnalyticsQueryAsync[json.RawMessage](ctx, c, statement, opts)
}

func (s *Scope) AnalyticsQuery(ctx context.Context, statement string, opts *AnalyticsOptions) (*AnalyticsResult, error) {
	return AnalyticsQuery[json.RawMessage](ctx, s, statement, opts)
}

func (s *Scope) AnalyticsQueryAsync(ctx context.Context, statement string, opts *AnalyticsOptions) *Future[*AsyncAnalyticsResult] {
	return AnalyticsQueryAsync[json.RawMessage](ctx, s, statement, opts)
}
