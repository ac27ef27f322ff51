package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogsConfig struct {
	Enabled   bool
	Collector Collector
}

// LoggerProvider ships application log entries to the collector. Its Core is
// teed into the application logger, so console output and export share one
// *zap.Logger.
type LoggerProvider struct {
	sdk    *sdklog.LoggerProvider
	scope  string
	logger *zap.Logger
}

// NewLoggerProvider batches records to the collector and installs the
// provider globally. Disabled, Core is a no-op.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{scope: cfg.Collector.ServiceName, logger: logger}
	if !cfg.Enabled {
		logger.Info("Log export disabled")
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("log exporter: %w", err)
	}
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, fmt.Errorf("log resource: %w", err)
	}

	lp.sdk = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.sdk)

	logger.Info("Log export enabled", zap.String("collector", cfg.Collector.Endpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool {
	return lp != nil && lp.sdk != nil
}

// Core exports entries at minLevel and above
func (lp *LoggerProvider) Core(minLevel zapcore.Level) zapcore.Core {
	if !lp.IsEnabled() {
		return zapcore.NewNopCore()
	}
	bridge := otelzap.NewCore(lp.scope, otelzap.WithLoggerProvider(lp.sdk))
	core, err := zapcore.NewIncreaseLevelCore(bridge, minLevel)
	if err != nil {
		lp.logger.Warn("Exporting logs at every level", zap.Stringer("min_level", minLevel), zap.Error(err))
		return bridge
	}
	return core
}

// Shutdown exports the records still buffered
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return stopWithin(ctx, "logger", lp.sdk.Shutdown)
}
