package gocbstreamx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchbase/gocbstreamx/nativex"
	"go.uber.org/zap"
)

// EngineType selects the native engine Connect builds.
type EngineType string

const (
	// EngineTypeHTTP talks to the query, analytics and search services
	// over their HTTP APIs directly.
	EngineTypeHTTP EngineType = "http"

	// EngineTypeCore routes requests through a gocbcore agent group.
	EngineTypeCore EngineType = "core"
)

const (
	DefaultQueryTimeout     = 75 * time.Second
	DefaultAnalyticsTimeout = 75 * time.Second
	DefaultSearchTimeout    = 75 * time.Second
	DefaultRowQueueSize     = 32
)

// ClusterOptions configures a Cluster. Zero values fall back to the
// connection string (when using Connect) and then to the defaults.
type ClusterOptions struct {
	Logger *zap.Logger

	// Engine is used by NewCluster. Connect builds its own engine and
	// ignores this field.
	Engine nativex.Engine

	EngineType EngineType
	Username   string
	Password   string
	HTTPClient *http.Client

	QueryTimeout     time.Duration
	AnalyticsTimeout time.Duration
	SearchTimeout    time.Duration

	// RowQueueSize bounds how many rows an asynchronous result buffers
	// ahead of its consumer.
	RowQueueSize int

	Serializer Serializer

	// Scheduler runs the jobs of asynchronous results: submission, one job
	// per pulled row, and the steps of Execute. Jobs never wait on each
	// other, so a scheduler running one job at a time is enough, but it
	// must not run jobs inline on the scheduling goroutine.
	Scheduler Scheduler
}

type clusterConfig struct {
	engineType       EngineType
	username         string
	password         string
	queryTimeout     time.Duration
	analyticsTimeout time.Duration
	searchTimeout    time.Duration
	rowQueueSize     int
}

func defaultClusterConfig() clusterConfig {
	return clusterConfig{
		engineType:       EngineTypeHTTP,
		queryTimeout:     DefaultQueryTimeout,
		analyticsTimeout: DefaultAnalyticsTimeout,
		searchTimeout:    DefaultSearchTimeout,
		rowQueueSize:     DefaultRowQueueSize,
	}
}

// applyConnStrOptions overlays the options found in a connection string.
func (c *clusterConfig) applyConnStrOptions(options map[string][]string) error {
	fetchOption := func(name string) (string, bool) {
		optValue := options[name]
		if len(optValue) == 0 {
			return "", false
		}
		return optValue[len(optValue)-1], true
	}

	durationOption := func(name string, target *time.Duration) error {
		valStr, ok := fetchOption(name)
		if !ok {
			return nil
		}

		val, err := parseConnStrDuration(valStr)
		if err != nil {
			return invalidArgumentError{Message: fmt.Sprintf("%s option must be a duration or a number of milliseconds", name)}
		}
		*target = val
		return nil
	}

	if err := durationOption("query_timeout", &c.queryTimeout); err != nil {
		return err
	}
	if err := durationOption("analytics_timeout", &c.analyticsTimeout); err != nil {
		return err
	}
	if err := durationOption("search_timeout", &c.searchTimeout); err != nil {
		return err
	}

	if valStr, ok := fetchOption("row_queue_size"); ok {
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return invalidArgumentError{Message: "row_queue_size option must be a number"}
		}
		c.rowQueueSize = val
	}

	if valStr, ok := fetchOption("engine"); ok {
		c.engineType = EngineType(valStr)
	}

	return nil
}

// applyOptions overlays explicitly set fields of opts.
func (c *clusterConfig) applyOptions(opts *ClusterOptions) {
	if opts == nil {
		return
	}

	if opts.EngineType != "" {
		c.engineType = opts.EngineType
	}
	if opts.Username != "" {
		c.username = opts.Username
	}
	if opts.Password != "" {
		c.password = opts.Password
	}
	if opts.QueryTimeout > 0 {
		c.queryTimeout = opts.QueryTimeout
	}
	if opts.AnalyticsTimeout > 0 {
		c.analyticsTimeout = opts.AnalyticsTimeout
	}
	if opts.SearchTimeout > 0 {
		c.searchTimeout = opts.SearchTimeout
	}
	if opts.RowQueueSize != 0 {
		c.rowQueueSize = opts.RowQueueSize
	}
}

func (c *clusterConfig) validate() error {
	switch c.engineType {
	case EngineTypeHTTP, EngineTypeCore:
	default:
		return invalidArgumentError{Message: fmt.Sprintf("unknown engine type %q", c.engineType)}
	}

	if c.queryTimeout <= 0 || c.analyticsTimeout <= 0 || c.searchTimeout <= 0 {
		return invalidArgumentError{Message: "timeouts must be positive"}
	}

	if c.rowQueueSize <= 0 {
		return invalidArgumentError{Message: "row queue size must be positive"}
	}

	return nil
}

// parseConnStrDuration accepts either a Go duration string or a bare
// number of milliseconds.
func parseConnStrDuration(val string) (time.Duration, error) {
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}
