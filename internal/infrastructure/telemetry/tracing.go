package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName scopes the spans opened by the invoicing services
const TracerName = "optica-backend"

// Attribute keys of invoicing spans
const (
	InvoiceIDKey     = attribute.Key("invoice.id")
	InvoiceNumberKey = attribute.Key("invoice.number")
	InvoiceStatusKey = attribute.Key("invoice.status")
	LineCountKey     = attribute.Key("invoice.line_count")
	PaymentIDKey     = attribute.Key("payment.id")
	AmountKey        = attribute.Key("amount")
	ReplayedKey      = attribute.Key("idempotency.replayed")
)

func InvoiceID(id int64) attribute.KeyValue          { return InvoiceIDKey.Int64(id) }
func InvoiceNumber(n string) attribute.KeyValue      { return InvoiceNumberKey.String(n) }
func InvoiceStatus(status string) attribute.KeyValue { return InvoiceStatusKey.String(status) }
func LineCount(n int) attribute.KeyValue             { return LineCountKey.Int(n) }
func PaymentID(id int64) attribute.KeyValue          { return PaymentIDKey.Int64(id) }
func Replayed(replayed bool) attribute.KeyValue      { return ReplayedKey.Bool(replayed) }

// Amount records money as text. A float attribute would round it.
func Amount(v decimal.Decimal) attribute.KeyValue { return AmountKey.String(v.String()) }

// StartSpan opens an internal span on the global provider. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, opts...)
}

// StartServiceSpan opens the span "{service}.{method}", e.g. "invoice.void"
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, trace.WithAttributes(attrs...))
}

// RecordError adds err as an exception event and marks span failed. Nil
// errors leave the span untouched.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
