package gocbstreamx

import (
	"context"
	"sync"
	"testing"

	"github.com/couchbase/gocbstreamx/nativex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	testTelemetryOnce sync.Once
	testSpanExporter  *tracetest.InMemoryExporter
	testMetricReader  *sdkmetric.ManualReader
)

// setupTestTelemetry installs the global providers. The global delegates
// only bind once, so every test shares the same exporter and reader.
func setupTestTelemetry() {
	testTelemetryOnce.Do(func() {
		testSpanExporter = tracetest.NewInMemoryExporter()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(testSpanExporter)))

		testMetricReader = sdkmetric.NewManualReader()
		otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(testMetricReader)))
	})
}

func findSpan(t *testing.T, clientContextID string) tracetest.SpanStub {
	for _, span := range testSpanExporter.GetSpans() {
		for _, attr := range span.Attributes {
			if attr.Key == "db.couchbase.client_context_id" && attr.Value.AsString() == clientContextID {
				return span
			}
		}
	}
	t.Fatalf("no span recorded for client context %s", clientContextID)
	return tracetest.SpanStub{}
}

func spanAttribute(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func sumCounter(t *testing.T, name string, bucketName string) int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, testMetricReader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if ns, ok := dp.Attributes.Value(semconv.DBNamespaceKey); ok && ns.AsString() == bucketName {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestTelemetrySuccessfulRequest(t *testing.T) {
	setupTestTelemetry()

	handle := newFakeHandle(querySuccessEnvelope, `{"a":1}`, `{"a":2}`)
	cluster := newTestCluster(t, newFakeEngine(handle), nil)
	scope := cluster.Bucket("telemetry-success").Scope("inventory")

	res, err := scope.Query(context.Background(), "SELECT 1", &QueryOptions{})
	require.NoError(t, err)
	rows, err := res.Execute()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	meta, err := res.MetaData()
	require.NoError(t, err)
	assert.NotNil(t, meta)

	span := findSpan(t, res.req.clientContextID)
	assert.Equal(t, "query", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	system, ok := spanAttribute(span, semconv.DBSystemKey)
	require.True(t, ok)
	assert.Equal(t, "couchbase", system.AsString())

	text, ok := spanAttribute(span, "db.query.text")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", text.AsString())

	numRows, ok := spanAttribute(span, "db.couchbase.rows")
	require.True(t, ok)
	assert.Equal(t, int64(2), numRows.AsInt64())

	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_requests", "telemetry-success"))
	assert.Equal(t, int64(2), sumCounter(t, "gocbstreamx.stream_rows", "telemetry-success"))
	assert.Equal(t, int64(0), sumCounter(t, "gocbstreamx.stream_errors", "telemetry-success"))
}

func TestTelemetryFailedRequest(t *testing.T) {
	setupTestTelemetry()

	handle := newFakeHandle(`{"status":"errors"}`, `{"a":1}`)
	handle.streamErr = &nativex.NativeError{
		Service: nativex.QueryService,
		Descs:   []nativex.ErrorDesc{{Code: 3000, Message: "syntax error"}},
	}
	cluster := newTestCluster(t, newFakeEngine(handle), nil)
	scope := cluster.Bucket("telemetry-failure").DefaultScope()

	res, err := scope.Query(context.Background(), "SELEC 1", nil)
	require.NoError(t, err)
	_, err = res.Execute()
	require.Error(t, err)

	span := findSpan(t, res.req.clientContextID)
	assert.Equal(t, codes.Error, span.Status.Code)
	assert.NotEmpty(t, span.Events)

	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_requests", "telemetry-failure"))
	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_errors", "telemetry-failure"))
	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_rows", "telemetry-failure"))
}

func TestTelemetrySubmissionFailure(t *testing.T) {
	setupTestTelemetry()

	engine := newFakeEngine()
	engine.SubmitFunc = func(ctx context.Context, req *nativex.SubmitRequest) (nativex.StreamHandle, error) {
		return nil, &nativex.NativeError{Service: nativex.QueryService, StatusCode: 503}
	}
	cluster := newTestCluster(t, engine, nil)
	scope := cluster.Bucket("telemetry-submit").DefaultScope()

	_, err := scope.Query(context.Background(), "SELECT 1", &QueryOptions{})
	require.Error(t, err)

	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_requests", "telemetry-submit"))
	assert.Equal(t, int64(1), sumCounter(t, "gocbstreamx.stream_errors", "telemetry-submit"))
}
