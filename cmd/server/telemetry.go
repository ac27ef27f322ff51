package main

import (
	"context"
	"fmt"

	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// telemetryStack is the application logger and the telemetry pipelines
// behind it
type telemetryStack struct {
	log      *zap.Logger
	logs     *telemetry.LoggerProvider
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	profiler *telemetry.Profiler
	invoices *telemetry.InvoiceMetrics
}

func startTelemetry(ctx context.Context, cfg *config.Config) (*telemetryStack, error) {
	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	collector := telemetry.Collector{
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	}
	tel := &telemetryStack{}

	// the OTLP log bridge becomes an extra core of the application logger
	tel.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:   cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		Collector: collector,
	}, bootLog)
	if err != nil {
		return nil, fmt.Errorf("initialize log export: %w", err)
	}
	tel.log, err = logger.New(logCfg, tel.logs.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	tel.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.TracesConfig{
		Enabled:       cfg.Telemetry.Enabled,
		Collector:     collector,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, tel.log)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	tel.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		Collector:      collector,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, tel.log)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}
	tel.invoices, err = telemetry.NewInvoiceMetrics(tel.meter.Meter("optica/invoicing"))
	if err != nil {
		return nil, fmt.Errorf("register invoice metrics: %w", err)
	}

	tel.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: cfg.Telemetry.ServiceName,
		Tags:            map[string]string{"service_version": version, "env": cfg.App.Env},
	}, tel.log)
	if err != nil {
		return nil, fmt.Errorf("start profiler: %w", err)
	}
	if tel.profiler.IsEnabled() {
		if err := tel.tracer.EnableSpanProfiles(); err != nil {
			tel.log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}
	return tel, nil
}

// shutdown flushes every pipeline. Logs go last so the other shutdowns
// still reach the collector.
func (t *telemetryStack) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := t.tracer.Shutdown(ctx); err != nil {
		t.log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := t.meter.Shutdown(ctx); err != nil {
		t.log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := t.profiler.Stop(); err != nil {
		t.log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := t.logs.Shutdown(ctx); err != nil {
		t.log.Warn("Error shutting down log exporter", zap.Error(err))
	}
}
