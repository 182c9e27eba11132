package gocbstreamx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocbstreamx/cbqueryx"
	"github.com/couchbase/gocbstreamx/futurex"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

const primaryIndexName = "#primary"

// QueryIndexManager manages the GSI indexes of a bucket through N1QL
// statements. Every operation is an ordinary streaming query.
type QueryIndexManager struct {
	cluster *Cluster
	logger  *zap.Logger
}

func (c *Cluster) QueryIndexes() *QueryIndexManager {
	return &QueryIndexManager{
		cluster: c,
		logger:  c.logger.Named("query-indexes"),
	}
}

type GetAllQueryIndexesOptions struct {
	ScopeName      string
	CollectionName string
	Timeout        time.Duration
}

type CreateQueryIndexOptions struct {
	ScopeName      string
	CollectionName string
	IgnoreIfExists bool
	Deferred       bool
	NumReplicas    *uint32
	Timeout        time.Duration
}

type CreatePrimaryQueryIndexOptions struct {
	ScopeName      string
	CollectionName string

	// IndexName is optional, the server names unnamed primary indexes
	// #primary.
	IndexName      string
	IgnoreIfExists bool
	Deferred       bool
	NumReplicas    *uint32
	Timeout        time.Duration
}

type DropQueryIndexOptions struct {
	ScopeName         string
	CollectionName    string
	IgnoreIfNotExists bool
	Timeout           time.Duration
}

type DropPrimaryQueryIndexOptions struct {
	ScopeName         string
	CollectionName    string
	IndexName         string
	IgnoreIfNotExists bool
	Timeout           time.Duration
}

type BuildDeferredQueryIndexOptions struct {
	ScopeName      string
	CollectionName string
	Timeout        time.Duration
}

type WatchQueryIndexOptions struct {
	ScopeName      string
	CollectionName string
	WatchPrimary   bool

	// Timeout bounds the whole watch when ctx has no earlier deadline.
	Timeout time.Duration
}

func queryAll[RowT any](ctx context.Context, c *Cluster, statement string, opts cbqueryx.Options) ([]RowT, error) {
	res, err := Query[RowT](ctx, c, statement, &QueryOptions{Options: opts})
	if err != nil {
		return nil, err
	}

	return res.Execute()
}

func (m *QueryIndexManager) exec(ctx context.Context, statement string, timeout time.Duration) error {
	m.logger.Debug("executing index statement", zap.String("statement", statement))

	_, err := queryAll[json.RawMessage](ctx, m.cluster, statement, cbqueryx.Options{
		Timeout: timeout,
	})
	return err
}

// GetAllIndexes lists the GSI indexes of a bucket, or of one of its
// collections when ScopeName or CollectionName are set.
func (m *QueryIndexManager) GetAllIndexes(ctx context.Context, bucketName string, opts *GetAllQueryIndexesOptions) ([]cbqueryx.Index, error) {
	if opts == nil {
		opts = &GetAllQueryIndexesOptions{}
	}
	if bucketName == "" {
		return nil, invalidArgumentError{Message: "a bucket name must be specified"}
	}

	statement, args := cbqueryx.BuildGetAllIndexesStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	})

	namedArgs := make(map[string]json.RawMessage, len(args))
	for name, value := range args {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, invalidArgumentError{Message: "failed to encode index query argument " + name}
		}
		namedArgs[name] = encoded
	}

	return queryAll[cbqueryx.Index](ctx, m.cluster, statement, cbqueryx.Options{
		NamedArgs: namedArgs,
		ReadOnly:  true,
		Timeout:   opts.Timeout,
	})
}

// GetAllIndexesAsync is the asynchronous form of GetAllIndexes.
func (m *QueryIndexManager) GetAllIndexesAsync(ctx context.Context, bucketName string, opts *GetAllQueryIndexesOptions) *Future[[]cbqueryx.Index] {
	return scheduleAsync(m.cluster.sched, func() ([]cbqueryx.Index, error) {
		return m.GetAllIndexes(ctx, bucketName, opts)
	})
}

func (m *QueryIndexManager) CreateIndex(ctx context.Context, bucketName, indexName string, fields []string, opts *CreateQueryIndexOptions) error {
	if opts == nil {
		opts = &CreateQueryIndexOptions{}
	}

	statement, err := cbqueryx.BuildCreateIndexStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	}, &cbqueryx.CreateIndexOptions{
		IndexName:   indexName,
		Fields:      fields,
		Deferred:    opts.Deferred,
		NumReplicas: opts.NumReplicas,
	})
	if err != nil {
		return invalidArgumentError{Message: err.Error()}
	}

	err = m.exec(ctx, statement, opts.Timeout)
	if err != nil && opts.IgnoreIfExists && errors.Is(err, cbqueryx.ErrIndexExists) {
		return nil
	}
	return err
}

func (m *QueryIndexManager) CreatePrimaryIndex(ctx context.Context, bucketName string, opts *CreatePrimaryQueryIndexOptions) error {
	if opts == nil {
		opts = &CreatePrimaryQueryIndexOptions{}
	}

	statement, err := cbqueryx.BuildCreateIndexStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	}, &cbqueryx.CreateIndexOptions{
		IsPrimary:   true,
		IndexName:   opts.IndexName,
		Deferred:    opts.Deferred,
		NumReplicas: opts.NumReplicas,
	})
	if err != nil {
		return invalidArgumentError{Message: err.Error()}
	}

	err = m.exec(ctx, statement, opts.Timeout)
	if err != nil && opts.IgnoreIfExists && errors.Is(err, cbqueryx.ErrIndexExists) {
		return nil
	}
	return err
}

func (m *QueryIndexManager) DropIndex(ctx context.Context, bucketName, indexName string, opts *DropQueryIndexOptions) error {
	if opts == nil {
		opts = &DropQueryIndexOptions{}
	}
	if indexName == "" {
		return invalidArgumentError{Message: "an index name must be specified"}
	}

	statement := cbqueryx.BuildDropIndexStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	}, indexName, false)

	err := m.exec(ctx, statement, opts.Timeout)
	if err != nil && opts.IgnoreIfNotExists && errors.Is(err, cbqueryx.ErrIndexNotFound) {
		return nil
	}
	return err
}

func (m *QueryIndexManager) DropPrimaryIndex(ctx context.Context, bucketName string, opts *DropPrimaryQueryIndexOptions) error {
	if opts == nil {
		opts = &DropPrimaryQueryIndexOptions{}
	}

	statement := cbqueryx.BuildDropIndexStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	}, opts.IndexName, true)

	err := m.exec(ctx, statement, opts.Timeout)
	if err != nil && opts.IgnoreIfNotExists && errors.Is(err, cbqueryx.ErrIndexNotFound) {
		return nil
	}
	return err
}

// BuildDeferredIndexes builds every deferred index of the keyspace and
// returns their names. Nothing is executed when no index is deferred.
func (m *QueryIndexManager) BuildDeferredIndexes(ctx context.Context, bucketName string, opts *BuildDeferredQueryIndexOptions) ([]string, error) {
	if opts == nil {
		opts = &BuildDeferredQueryIndexOptions{}
	}

	indexes, err := m.GetAllIndexes(ctx, bucketName, &GetAllQueryIndexesOptions{
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
		Timeout:        opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	var deferred []string
	for _, index := range indexes {
		if index.State == cbqueryx.IndexStateDeferred {
			deferred = append(deferred, index.Name)
		}
	}
	if len(deferred) == 0 {
		return nil, nil
	}

	statement := cbqueryx.BuildBuildIndexesStatement(cbqueryx.Keyspace{
		BucketName:     bucketName,
		ScopeName:      opts.ScopeName,
		CollectionName: opts.CollectionName,
	}, deferred)

	if err := m.exec(ctx, statement, opts.Timeout); err != nil {
		return nil, err
	}

	return deferred, nil
}

// checkIndexesOnline reports whether every watched index is online. A
// watched index missing from indexes is an error.
func checkIndexesOnline(indexes []cbqueryx.Index, watchList []string) (bool, error) {
	allOnline := true
	for _, name := range watchList {
		idx := slices.IndexFunc(indexes, func(index cbqueryx.Index) bool {
			return index.Name == name
		})
		if idx < 0 {
			return false, fmt.Errorf("%w: %s", cbqueryx.ErrIndexNotFound, name)
		}
		if indexes[idx].State != cbqueryx.IndexStateOnline {
			allOnline = false
		}
	}
	return allOnline, nil
}

// WatchIndexes polls until every named index is online.
func (m *QueryIndexManager) WatchIndexes(ctx context.Context, bucketName string, indexNames []string, opts *WatchQueryIndexOptions) error {
	if opts == nil {
		opts = &WatchQueryIndexOptions{}
	}

	watchList := slices.Clone(indexNames)
	if opts.WatchPrimary && !slices.Contains(watchList, primaryIndexName) {
		watchList = append(watchList, primaryIndexName)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.cluster.config.queryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := 50 * time.Millisecond
	for {
		indexes, err := m.GetAllIndexes(ctx, bucketName, &GetAllQueryIndexesOptions{
			ScopeName:      opts.ScopeName,
			CollectionName: opts.CollectionName,
		})
		if err != nil {
			return err
		}

		allOnline, err := checkIndexesOnline(indexes, watchList)
		if err != nil {
			return err
		}
		if allOnline {
			return nil
		}

		m.logger.Debug("waiting for indexes to come online",
			zap.Strings("indexes", watchList),
			zap.Duration("interval", interval))

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: indexes did not come online in time", cbqueryx.ErrTimeout)
			}
			return ctx.Err()
		}

		interval += 500 * time.Millisecond
		if interval > time.Second {
			interval = time.Second
		}
	}
}

// WatchIndexesAsync is the asynchronous form of WatchIndexes.
func (m *QueryIndexManager) WatchIndexesAsync(ctx context.Context, bucketName string, indexNames []string, opts *WatchQueryIndexOptions) *Future[struct{}] {
	return scheduleAsync(m.cluster.sched, func() (struct{}, error) {
		return struct{}{}, m.WatchIndexes(ctx, bucketName, indexNames, opts)
	})
}

// scheduleAsync runs fn on sched, completing the returned future with its
// result.
func scheduleAsync[T any](sched Scheduler, fn func() (T, error)) *Future[T] {
	return futurex.BridgeCallback(func(cb func(T, error)) error {
		sched.Schedule(func() {
			cb(fn())
		})
		return nil
	})
}
