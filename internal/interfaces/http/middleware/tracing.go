// Package middleware provides the HTTP middleware of the invoicing API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Server span attributes added on top of what otelgin records
const (
	SpanRequestIDKey        = attribute.Key("request.id")
	SpanEmployeeIDKey       = attribute.Key("employee.id")
	SpanEmployeeUsernameKey = attribute.Key("employee.username")
)

// TracingConfig selects the service name of server spans. Requests to
// SkipPaths, such as health probes, are not traced.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	SkipPaths   []string
}

// Tracing returns the handlers that open a server span per request, named
// "METHOD route" such as "PATCH /api/v1/facturas/:id/anular", and annotate it
// with the request ID and API error code. A disabled config returns none.
//
//	engine.Use(middleware.Tracing(cfg)...)
func Tracing(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return nil
	}
	traced := otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !slices.Contains(cfg.SkipPaths, r.URL.Path)
		}),
	)
	return gin.HandlersChain{traced, annotateServerSpan}
}

// annotateServerSpan runs inside the otelgin span. 4xx responses are the
// client's fault and leave the span status alone.
func annotateServerSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	if id := GetRequestID(c); id != "" {
		span.SetAttributes(SpanRequestIDKey.String(id))
	}

	c.Next()

	if code := c.GetString(ErrorCodeKey); code != "" {
		span.SetAttributes(semconv.ErrorTypeKey.String(code))
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// TraceEmployee tags the server span with the authenticated employee. Use it
// after the JWT middleware.
func TraceEmployee() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			attrs := make([]attribute.KeyValue, 0, 2)
			if id := c.GetString(JWTUserIDKey); id != "" {
				attrs = append(attrs, SpanEmployeeIDKey.String(id))
			}
			if name := c.GetString(JWTUsernameKey); name != "" {
				attrs = append(attrs, SpanEmployeeUsernameKey.String(name))
			}
			span.SetAttributes(attrs...)
		}
		c.Next()
	}
}
