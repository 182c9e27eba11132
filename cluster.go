package gocbstreamx

import (
	"time"

	"github.com/couchbase/gocbstreamx/cbhttpx"
	"github.com/couchbase/gocbstreamx/coreenginex"
	"github.com/couchbase/gocbstreamx/httpenginex"
	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/couchbaselabs/gocbconnstr/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var userAgent = "gocbstreamx/" + buildVersion

// Cluster is the entry point for issuing query, analytics and search
// requests. It is safe for concurrent use.
type Cluster struct {
	logger     *zap.Logger
	engine     nativex.Engine
	ownsEngine bool
	config     clusterConfig
	serializer Serializer
	sched      Scheduler

	closed atomic.Bool
}

// NewCluster wraps an existing engine. The engine is not closed when the
// cluster is.
func NewCluster(opts *ClusterOptions) (*Cluster, error) {
	if opts == nil || opts.Engine == nil {
		return nil, invalidArgumentError{Message: "an engine must be specified"}
	}

	config := defaultClusterConfig()
	config.applyOptions(opts)
	if err := config.validate(); err != nil {
		return nil, err
	}

	return newCluster(opts.Engine, false, config, opts), nil
}

// Connect builds an engine for the cluster described by connStr. Options
// in opts take precedence over those found in the connection string.
func Connect(connStr string, opts *ClusterOptions) (*Cluster, error) {
	if opts == nil {
		opts = &ClusterOptions{}
	}

	baseSpec, err := gocbconnstr.Parse(connStr)
	if err != nil {
		return nil, invalidArgumentError{Message: "failed to parse connection string: " + err.Error()}
	}

	spec, err := gocbconnstr.Resolve(baseSpec)
	if err != nil {
		return nil, invalidArgumentError{Message: "failed to resolve connection string: " + err.Error()}
	}

	config := defaultClusterConfig()
	if err := config.applyConnStrOptions(spec.Options); err != nil {
		return nil, err
	}
	config.applyOptions(opts)
	if err := config.validate(); err != nil {
		return nil, err
	}

	logger := loggerOrNop(opts.Logger)

	var engine nativex.Engine
	switch config.engineType {
	case EngineTypeCore:
		engine, err = coreenginex.NewEngine(&coreenginex.EngineOptions{
			Logger:    logger.Named("core-engine"),
			UserAgent: userAgent,
			ConnStr:   connStr,
			Username:  config.username,
			Password:  config.password,
		})
	default:
		httpOpts := &httpenginex.EngineOptions{
			Logger:    logger.Named("http-engine"),
			UserAgent: userAgent,
			Authenticator: cbhttpx.BasicAuth{
				Username: config.username,
				Password: config.password,
			},
		}
		if opts.HTTPClient != nil {
			httpOpts.Transport = opts.HTTPClient.Transport
		}
		engine, err = httpenginex.NewEngineFromConnStr(connStr, httpOpts)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("connected",
		zap.String("engine", string(config.engineType)),
		zap.Int("hosts", len(spec.HttpHosts)))

	return newCluster(engine, true, config, opts), nil
}

func newCluster(engine nativex.Engine, ownsEngine bool, config clusterConfig, opts *ClusterOptions) *Cluster {
	return &Cluster{
		logger:     loggerOrNop(opts.Logger),
		engine:     engine,
		ownsEngine: ownsEngine,
		config:     config,
		serializer: serializerOrDefault(opts.Serializer),
		sched:      schedulerOrDefault(opts.Scheduler),
	}
}

// Close closes the cluster, and the engine if Connect created it.
func (c *Cluster) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClusterClosed
	}

	if !c.ownsEngine {
		return nil
	}
	return c.engine.Close()
}

func (c *Cluster) checkOpen() error {
	if c.closed.Load() {
		return ErrClusterClosed
	}
	return nil
}

func (c *Cluster) requestOptions(service nativex.ServiceType, params nativex.Params, serializer Serializer) streamingRequestOptions {
	if serializer == nil {
		serializer = c.serializer
	}

	var defaultTimeout time.Duration
	switch service {
	case nativex.QueryService:
		defaultTimeout = c.config.queryTimeout
	case nativex.AnalyticsService:
		defaultTimeout = c.config.analyticsTimeout
	case nativex.SearchService:
		defaultTimeout = c.config.searchTimeout
	}

	return streamingRequestOptions{
		Logger:         c.logger,
		Engine:         c.engine,
		Serializer:     serializer,
		Params:         params,
		DefaultTimeout: defaultTimeout,
		QueueSize:      c.config.rowQueueSize,
	}
}

// Bucket returns a handle to the named bucket. No request is made.
func (c *Cluster) Bucket(name string) *Bucket {
	return &Bucket{
		cluster: c,
		name:    name,
	}
}

type Bucket struct {
	cluster *Cluster
	name    string
}

func (b *Bucket) Name() string {
	return b.name
}

// Scope returns a handle to the named scope of the bucket.
func (b *Bucket) Scope(name string) *Scope {
	return &Scope{
		bucket: b,
		name:   name,
	}
}

// DefaultScope returns the _default scope of the bucket.
func (b *Bucket) DefaultScope() *Scope {
	return b.Scope("_default")
}

// Scope issues requests in the context of a bucket and scope: queries get
// a query_context and searches target scoped indexes.
type Scope struct {
	bucket *Bucket
	name   string
}

func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) BucketName() string {
	return s.bucket.name
}
