package gocbstreamx

import (
	"context"
	"encoding/json"

	"github.com/couchbase/gocbstreamx/cbqueryx"
	"github.com/couchbase/gocbstreamx/futurex"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/google/uuid"
)

// QueryOptions are the options of a N1QL request. The statement passed to
// the query functions takes precedence over Statement.
type QueryOptions struct {
	cbqueryx.Options

	// Serializer decodes the rows of this request only.
	Serializer Serializer
}

type QueryResult = StreamResult[json.RawMessage, cbqueryx.MetaData]
type AsyncQueryResult = AsyncStreamResult[json.RawMessage, cbqueryx.MetaData]

// Queryable is implemented by the types requests can be issued against:
// *Cluster and *Scope.
type Queryable interface {
	requestTarget() requestTarget
}

type requestTarget struct {
	cluster    *Cluster
	bucketName string
	scopeName  string
}

func (t requestTarget) queryContext() string {
	if t.bucketName == "" {
		return ""
	}
	return cbqueryx.QueryContext(t.bucketName, t.scopeName)
}

func (c *Cluster) requestTarget() requestTarget {
	return requestTarget{cluster: c}
}

func (s *Scope) requestTarget() requestTarget {
	return requestTarget{
		cluster:    s.bucket.cluster,
		bucketName: s.bucket.name,
		scopeName:  s.name,
	}
}

func newQueryRequest[RowT any](
	q Queryable,
	statement string,
	opts *QueryOptions,
) (*Cluster, *streamingRequest[RowT, cbqueryx.MetaData], error) {
	target := q.requestTarget()
	cluster := target.cluster
	if err := cluster.checkOpen(); err != nil {
		return nil, nil, err
	}

	var queryOpts cbqueryx.Options
	var serializer Serializer
	if opts != nil {
		queryOpts = opts.Options
		serializer = opts.Serializer
	}

	if statement != "" {
		queryOpts.Statement = statement
	}
	if queryOpts.Statement == "" {
		return nil, nil, invalidArgumentError{Message: "a statement must be specified"}
	}
	if queryOpts.ClientContextId == "" {
		queryOpts.ClientContextId = uuid.NewString()
	}
	if queryOpts.QueryContext == "" {
		queryOpts.QueryContext = target.queryContext()
	}
	if queryOpts.Timeout == 0 {
		queryOpts.Timeout = cluster.config.queryTimeout
	}

	params, err := queryOpts.EncodeParams()
	if err != nil {
		return nil, nil, invalidArgumentError{Message: "failed to encode query options: " + err.Error()}
	}

	reqOpts := cluster.requestOptions(nativex.QueryService, params, serializer)
	reqOpts.BucketName = target.bucketName

	return cluster, newStreamingRequest[RowT, cbqueryx.MetaData](queryVariant[RowT]{}, reqOpts), nil
}

// Query executes a N1QL statement, decoding each row into RowT. The
// request is submitted before Query returns; rows are pulled as they are
// read from the result.
func Query[RowT any](
	ctx context.Context,
	q Queryable,
	statement string,
	opts *QueryOptions,
) (*StreamResult[RowT, cbqueryx.MetaData], error) {
	_, req, err := newQueryRequest[RowT](q, statement, opts)
	if err != nil {
		return nil, err
	}

	if err := req.submit(ctx); err != nil {
		return nil, err
	}

	return newStreamResult(ctx, req), nil
}

// QueryAsync executes a N1QL statement in the background. The returned
// future resolves once the request has been accepted, after which rows are
// buffered ahead of the consumer.
func QueryAsync[RowT any](
	ctx context.Context,
	q Queryable,
	statement string,
	opts *QueryOptions,
) *Future[*AsyncStreamResult[RowT, cbqueryx.MetaData]] {
	cluster, req, err := newQueryRequest[RowT](q, statement, opts)
	if err != nil {
		return futurex.Rejected[*AsyncStreamResult[RowT, cbqueryx.MetaData]](err)
	}

	return startAsyncStreamResult(ctx, req, cluster.sched)
}

func (c *Cluster) Query(ctx context.Context, statement string, opts *QueryOptions) (*QueryResult, error) {
	return Query[json.RawMessage](ctx, c, statement, opts)
}

func (c *Cluster) QueryAsync(ctx context.Context, statement string, opts *QueryOptions) *Future[*AsyncQueryResult] {
	return QueryAsync[json.RawMessage](ctx, c, statement, opts)
}

// Query executes a N1QL statement with the query context set to this
// scope, so keyspaces can be named by collection alone.
func (s *Scope) Query(ctx context.Context, statement string, opts *QueryOptions) (*QueryResult, error) {
	return Query[json.RawMessage](ctx, s, statement, opts)
}

func (s *Scope) QueryAsync(ctx context.Context, statement string, opts *QueryOptions) *Future[*AsyncQueryResult] {
	return QueryAsync[json.RawMessage](ctx, s, statement, opts)
}
