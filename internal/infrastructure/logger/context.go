package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type scopeKey struct{}

// scope is the logging state a request carries through its context
type scope struct {
	logger    *zap.Logger
	requestID string
	userID    string
}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	s := scopeOf(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return withScope(ctx, func(s *scope) { s.logger = logger })
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l := scopeOf(ctx).logger; l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request ID in ctx and returns logger tagged
// with it, which is also attached to ctx
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	tagged := logger.With(zap.String("request_id", requestID))
	return withScope(ctx, func(s *scope) {
		s.requestID = requestID
		s.logger = tagged
	}), tagged
}

// WithUserID is WithRequestID for the authenticated employee
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	tagged := logger.With(zap.String("user_id", userID))
	return withScope(ctx, func(s *scope) {
		s.userID = userID
		s.logger = tagged
	}), tagged
}

func GetRequestID(ctx context.Context) string { return scopeOf(ctx).requestID }

func GetUserID(ctx context.Context) string { return scopeOf(ctx).userID }

// WithTraceContext tags logger with the trace and span of the active span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.Stringer("trace_id", sc.TraceID()),
		zap.Stringer("span_id", sc.SpanID()),
	)
}

// L is the request logger of ctx tagged with the active trace.
//
//	logger.L(ctx).Info("Invoice voided", zap.Int64("invoice_id", id))
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}
