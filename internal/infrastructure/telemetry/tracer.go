package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// batchTimeout is how long spans wait before export. An invoice request
// rarely produces more than a few dozen spans.
const batchTimeout = 2 * time.Second

type TracesConfig struct {
	Enabled       bool
	Collector     Collector
	SamplingRatio float64
}

// newSampler follows the caller's decision and samples new traces at ratio
func newSampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(ratio)
	switch {
	case ratio >= 1:
		root = sdktrace.AlwaysSample()
	case ratio <= 0:
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// TracerProvider exports spans over OTLP. Disabled, Tracer hands out
// tracers of the global provider.
type TracerProvider struct {
	sdk          *sdktrace.TracerProvider
	logger       *zap.Logger
	serviceName  string
	spanProfiles atomic.Bool
}

// NewTracerProvider installs the provider and the W3C trace context and
// baggage propagators globally when cfg.Enabled is set.
func NewTracerProvider(ctx context.Context, cfg TracesConfig, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{logger: logger, serviceName: cfg.Collector.ServiceName}
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRatio)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	otel.SetTracerProvider(tp.sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("Tracing enabled",
		zap.String("collector", cfg.Collector.Endpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
	)
	return tp, nil
}

// EnableSpanProfiles labels CPU samples with the active span so Pyroscope
// can show the profile of a slow receipt render. Start the profiler first.
func (tp *TracerProvider) EnableSpanProfiles() error {
	if tp.sdk == nil {
		tp.logger.Debug("Span profiles need tracing; skipped")
		return nil
	}
	if tp.spanProfiles.CompareAndSwap(false, true) {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.sdk))
		tp.logger.Info("Span profiles enabled", zap.String("service_name", tp.serviceName))
	}
	return nil
}

func (tp *TracerProvider) SpanProfilesEnabled() bool { return tp.spanProfiles.Load() }

func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.sdk == nil {
		return otel.Tracer(name, opts...)
	}
	return tp.sdk.Tracer(name, opts...)
}

func (tp *TracerProvider) IsEnabled() bool { return tp.sdk != nil }

// Shutdown exports the spans still buffered
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.sdk == nil {
		return nil
	}
	if err := stopWithin(ctx, "tracer", tp.sdk.Shutdown); err != nil {
		return err
	}
	tp.logger.Info("Tracer provider stopped")
	return nil
}
