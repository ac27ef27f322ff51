package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

type MetricsConfig struct {
	Enabled        bool
	Collector      Collector
	ExportInterval time.Duration
}

// MeterProvider exports metrics over OTLP. Disabled, Meter hands out meters
// of the global no-op provider.
type MeterProvider struct {
	sdk    *sdkmetric.MeterProvider
	logger *zap.Logger
}

// NewMeterProvider installs the provider globally when cfg.Enabled is set
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics export disabled")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
	}

	mp.sdk = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithView(amountView()),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.sdk)

	logger.Info("Metrics export enabled",
		zap.String("collector", cfg.Collector.Endpoint),
		zap.Duration("export_interval", interval),
	)
	return mp, nil
}

// amountView buckets every money histogram the same way, whichever
// component registered it.
func amountView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: "optica_*_amount"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: AmountBuckets}},
	)
}

func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.sdk == nil {
		return otel.Meter(name, opts...)
	}
	return mp.sdk.Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool { return mp.sdk != nil }

// Shutdown exports what was recorded since the last interval
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.sdk == nil {
		return nil
	}
	if err := stopWithin(ctx, "meter", mp.sdk.Shutdown); err != nil {
		return err
	}
	mp.logger.Info("Metrics exporter stopped")
	return nil
}

// Instruments registers a group of instruments on one meter. Registration
// errors are collected and reported together by Err, so a constructor can
// declare all its instruments before checking.
type Instruments struct {
	meter metric.Meter
	errs  []error
}

func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

func (in *Instruments) Counter(name, description, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.track(name, err)
	return c
}

func (in *Instruments) UpDownCounter(name, description, unit string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.track(name, err)
	return c
}

// Histogram registers a float64 histogram. No bounds keeps the SDK buckets.
func (in *Instruments) Histogram(name, description, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := in.meter.Float64Histogram(name, opts...)
	in.track(name, err)
	return h
}

// Err joins every registration failure so far
func (in *Instruments) Err() error {
	return errors.Join(in.errs...)
}

func (in *Instruments) track(name string, err error) {
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("register %s: %w", name, err))
	}
}

// Attribute keys shared by the invoicing metrics
var (
	AttrInvoiceStatus = attribute.Key("invoice_status")
	AttrOutcome       = attribute.Key("outcome")
	AttrSettled       = attribute.Key("settled")
)

var (
	// HTTPDurationBuckets bound API latency in seconds
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// RenderDurationBuckets bound headless browser PDF rendering in seconds
	RenderDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30}

	// AmountBuckets bound invoice and payment amounts in lempiras
	AmountBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000}
)
