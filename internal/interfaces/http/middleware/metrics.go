package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ErrorCodeKey holds the API error code written for the request, such as
// INVOICE_IMMUTABLE. Set it through SetErrorCode.
const ErrorCodeKey = "api_error_code"

// unmatchedRoute labels requests no route matched
const unmatchedRoute = "unmatched"

// responseSizeBuckets reach into megabytes for receipt PDFs and workbook exports
var responseSizeBuckets = []float64{256, 1024, 8192, 65536, 262144, 1048576, 4194304}

// SetErrorCode records the error code of the response for metrics and tracing
func SetErrorCode(c *gin.Context, code string) {
	c.Set(ErrorCodeKey, code)
}

// HTTPMetricsConfig configures HTTPMetrics
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
	Logger        *zap.Logger
}

type httpInstruments struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	bodySize metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	in := telemetry.NewInstruments(meter)
	h := &httpInstruments{
		requests: in.Counter("http_server_request_total", "HTTP requests by route, status and API error code", "{request}"),
		latency:  in.Histogram("http_server_request_duration_seconds", "HTTP request latency", "s", telemetry.HTTPDurationBuckets...),
		bodySize: in.Histogram("http_server_response_size_bytes", "HTTP response body size", "By", responseSizeBuckets...),
		inFlight: in.UpDownCounter("http_server_active_requests", "HTTP requests being served", "{request}"),
	}
	return h, in.Err()
}

// HTTPMetrics counts and times requests by route pattern. Without an
// enabled meter provider it is a pass-through.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), cfg.Logger)
}

// HTTPMetricsWithMeter is HTTPMetrics on an explicit meter
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	in, err := newHTTPInstruments(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		started := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		route := []attribute.KeyValue{
			semconv.HTTPRequestMethodKey.String(c.Request.Method),
			semconv.HTTPRouteKey.String(routePattern(c)),
		}
		routeSet := metric.WithAttributes(route...)
		in.latency.Record(ctx, time.Since(started).Seconds(), routeSet)
		if size := c.Writer.Size(); size > 0 {
			in.bodySize.Record(ctx, float64(size), routeSet)
		}

		outcome := append(route, semconv.HTTPResponseStatusCodeKey.Int(c.Writer.Status()))
		if code := c.GetString(ErrorCodeKey); code != "" {
			outcome = append(outcome, semconv.ErrorTypeKey.String(code))
		}
		in.requests.Add(ctx, 1, metric.WithAttributes(outcome...))
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// routePattern returns the matched pattern, e.g. "/api/v1/facturas/:id",
// so per-invoice paths share a series.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
