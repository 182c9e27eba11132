package gocbstreamx

import (
	"context"

	"github.com/couchbase/gocbstreamx/cbsearchx"
	"github.com/couchbase/gocbstreamx/futurex"
	"github.com/couchbase/gocbstreamx/nativex"
)

// SearchOptions are the options of a search request. The query passed to
// Search takes precedence over Query.
type SearchOptions struct {
	cbsearchx.QueryOptions

	// Serializer decodes the hits, and any fields and explanations the
	// engine embeds as strings.
	Serializer Serializer
}

type SearchResult = StreamResult[cbsearchx.Row, cbsearchx.MetaData]
type AsyncSearchResult = AsyncStreamResult[cbsearchx.Row, cbsearchx.MetaData]

func newSearchRequest(
	q Queryable,
	indexName string,
	query cbsearchx.Query,
	opts *SearchOptions,
) (*Cluster, *streamingRequest[cbsearchx.Row, cbsearchx.MetaData], error) {
	target := q.requestTarget()
	cluster := target.cluster
	if err := cluster.checkOpen(); err != nil {
		return nil, nil, err
	}

	if indexName == "" {
		return nil, nil, invalidArgumentError{Message: "an index name must be specified"}
	}

	var searchOpts cbsearchx.QueryOptions
	var serializer Serializer
	if opts != nil {
		searchOpts = opts.QueryOptions
		serializer = opts.Serializer
	}

	if query != nil {
		searchOpts.Query = query
	}
	if searchOpts.Query == nil {
		return nil, nil, invalidArgumentError{Message: "a search query must be specified"}
	}
	if searchOpts.Timeout == 0 {
		searchOpts.Timeout = cluster.config.searchTimeout
	}

	params, err := searchOpts.EncodeParams()
	if err != nil {
		return nil, nil, invalidArgumentError{Message: "failed to encode search options: " + err.Error()}
	}

	reqOpts := cluster.requestOptions(nativex.SearchService, params, serializer)
	// the search timeout lives in ctl.timeout, so it is passed explicitly
	reqOpts.Timeout = searchOpts.Timeout
	reqOpts.IndexName = indexName
	reqOpts.BucketName = target.bucketName
	reqOpts.ScopeName = target.scopeName

	return cluster, newStreamingRequest[cbsearchx.Row, cbsearchx.MetaData](searchVariant{}, reqOpts), nil
}

// Search runs a search query against indexName. Against a Scope the
// index is resolved within that scope.
func Search(
	ctx context.Context,
	q Queryable,
	indexName string,
	query cbsearchx.Query,
	opts *SearchOptions,
) (*SearchResult, error) {
	_, req, err := newSearchRequest(q, indexName, query, opts)
	if err != nil {
		return nil, err
	}

	if err := req.submit(ctx); err != nil {
		return nil, err
	}

	return newStreamResult(ctx, req), nil
}

func SearchAsync(
	ctx context.Context,
	q Queryable,
	indexName string,
	query cbsearchx.Query,
	opts *SearchOptions,
) *Future[*AsyncSearchResult] {
	cluster, req, err := newSearchRequest(q, indexName, query, opts)
	if err != nil {
		return futurex.Rejected[*AsyncSearchResult](err)
	}

	return startAsyncStreamResult(ctx, req, cluster.sched)
}

func (c *Cluster) Search(ctx context.Context, indexName string, query cbsearchx.Query, opts *SearchOptions) (*SearchResult, error) {
	return Search(ctx, c, indexName, query, opts)
}

func (c *Cluster) SearchAsync(ctx context.Context, indexName string, query cbsearchx.Query, opts *SearchOptions) *Future[*AsyncSearchResult] {
	return SearchAsync(ctx, c, indexName, query, opts)
}

func (s *Scope) Search(ctx context.Context, indexName string, query cbsearchx.Query, opts *SearchOptions) (*SearchResult, error) {
	return Search(ctx, s, indexName, query, opts)
}

func (s *Scope) SearchAsync(ctx context.Context, indexName string, query cbsearchx.Query, opts *SearchOptions) *Future[*AsyncSearchResult] {
	return SearchAsync(ctx, s, indexName, query, opts)
}
