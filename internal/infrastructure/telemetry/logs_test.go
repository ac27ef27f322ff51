package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{Collector: testCollector}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))

	core := lp.Core(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLoggerProvider_NilCore(t *testing.T) {
	var lp *LoggerProvider
	assert.False(t, lp.Core(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestNewLoggerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping exporter test in short mode")
	}

	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: true, Collector: testCollector}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, lp.IsEnabled())

	logger := zap.New(zapcore.NewTee(zaptest.NewLogger(t).Core(), lp.Core(zapcore.WarnLevel)))
	logger.Warn("receipt generation failed", zap.Int64("invoice_id", 1))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_ = lp.Shutdown(cancelled)
}

type memoryLogExporter struct {
	mu       sync.Mutex
	messages []string
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.messages = append(e.messages, r.Body().AsString())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func TestLoggerProvider_CoreFiltersByLevel(t *testing.T) {
	exp := &memoryLogExporter{}
	lp := &LoggerProvider{
		sdk:    sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp))),
		scope:  "optica-backend",
		logger: zap.NewNop(),
	}
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	core := lp.Core(zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))

	logger := zap.New(core)
	logger.Info("invoice issued")
	logger.Warn("receipt file missing")
	logger.With(zap.String("file", "factura-1.pdf")).Error("render failed")
	logger.Debug("render started")

	assert.Equal(t, []string{"receipt file missing", "render failed"}, exp.messages)
}
