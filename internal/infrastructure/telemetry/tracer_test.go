package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	tp, err := NewTracerProvider(ctx, TracesConfig{
		Collector:     testCollector,
		SamplingRatio: 1.0,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.SpanProfilesEnabled())

	_, span := tp.Tracer("test").Start(ctx, "noop")
	span.End()

	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping exporter test in short mode")
	}

	ctx := context.Background()
	// The gRPC exporter connects lazily, so construction works without a collector
	tp, err := NewTracerProvider(ctx, TracesConfig{
		Enabled:       true,
		Collector:     testCollector,
		SamplingRatio: 1.0,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	require.NoError(t, tp.EnableSpanProfiles())
	assert.True(t, tp.SpanProfilesEnabled())

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	// Flushing against a missing collector may fail; only the call path matters here
	_ = tp.Shutdown(shutdownCtx)
}

// The gRPC exporters dial lazily, so providers build without a collector
var testCollector = Collector{
	Endpoint:       "localhost:4317",
	Insecure:       true,
	ServiceName:    "optica-backend-test",
	ServiceVersion: "1.2.3",
}

func TestStopWithin(t *testing.T) {
	var deadline bool
	err := stopWithin(context.Background(), "tracer", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, deadline)

	err = stopWithin(context.Background(), "meter", func(context.Context) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "shutdown meter provider")
}

func TestNewSampler(t *testing.T) {
	sampled := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{1},
	})

	tests := []struct {
		name  string
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{"always", 1.0, sdktrace.RecordAndSample},
		{"above one", 2.0, sdktrace.RecordAndSample},
		{"never", 0.0, sdktrace.Drop},
		{"negative", -1, sdktrace.Drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newSampler(tt.ratio).ShouldSample(sdktrace.SamplingParameters{
				ParentContext: context.Background(),
				TraceID:       sampled.TraceID(),
				Name:          "invoice.create",
			})
			assert.Equal(t, tt.want, result.Decision)
		})
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("optica-backend", "")
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "optica-backend", values["service.name"])
	assert.Equal(t, DefaultServiceVersion, values["service.version"])
	assert.NotEmpty(t, values["telemetry.sdk.language"])

	res, err = newResource("optica-backend", "1.4.0")
	require.NoError(t, err)
	version, ok := res.Set().Value("service.version")
	require.True(t, ok)
	assert.Equal(t, "1.4.0", version.AsString())
}

func TestEnableSpanProfiles_Idempotent(t *testing.T) {
	tp := &TracerProvider{sdk: sdktrace.NewTracerProvider(), logger: zaptest.NewLogger(t)}
	t.Cleanup(func() { _ = tp.sdk.Shutdown(context.Background()) })

	require.NoError(t, tp.EnableSpanProfiles())
	require.NoError(t, tp.EnableSpanProfiles())
	assert.True(t, tp.SpanProfilesEnabled())
	assert.True(t, tp.IsEnabled())
}
