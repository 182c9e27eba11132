package gocbstreamx

import (
	"github.com/couchbase/gocbstreamx/contrib/buildversion"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	buildVersion string = buildversion.GetVersion("github.com/couchbase/gocbstreamx")
	meter               = otel.Meter("github.com/couchbase/gocbstreamx",
		metric.WithInstrumentationVersion(buildVersion))
	tracer = otel.Tracer("github.com/couchbase/gocbstreamx",
		trace.WithInstrumentationVersion(buildVersion))
)

var (
	// streamRequests tracks the number of streaming requests submitted to the engine.
	streamRequests, _ = meter.Int64Counter("gocbstreamx.stream_requests")

	// streamRows tracks the number of rows delivered by streaming requests.
	streamRows, _ = meter.Int64Counter("gocbstreamx.stream_rows")

	// streamErrors tracks requests which failed either at submission or while streaming.
	streamErrors, _ = meter.Int64Counter("gocbstreamx.stream_errors")

	streamDuration, _ = meter.Float64Histogram("db.client.operation.duration",
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 75))
)
