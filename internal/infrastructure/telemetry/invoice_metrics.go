package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Metric names exported by InvoiceMetrics.
const (
	MetricInvoicesCreated   = "optica_invoices_created_total"
	MetricInvoiceAmount     = "optica_invoice_amount"
	MetricInvoicesVoided    = "optica_invoices_voided_total"
	MetricReceiptsRendered  = "optica_receipts_rendered_total"
	MetricReceiptRenderTime = "optica_receipt_render_duration_seconds"
	MetricPayments          = "optica_payments_total"
	MetricPaymentAmount     = "optica_payment_amount"
)

// InvoiceMetrics records business counters for invoices, receipts and
// payments. It satisfies the metrics port of the invoicing services.
type InvoiceMetrics struct {
	invoicesCreated  metric.Int64Counter
	invoicesVoided   metric.Int64Counter
	receiptsRendered metric.Int64Counter
	payments         metric.Int64Counter
	invoiceAmount    metric.Float64Histogram
	paymentAmount    metric.Float64Histogram
	renderDuration   metric.Float64Histogram
}

func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	in := NewInstruments(meter)
	m := &InvoiceMetrics{
		invoicesCreated:  in.Counter(MetricInvoicesCreated, "Number of invoices issued", "{invoices}"),
		invoicesVoided:   in.Counter(MetricInvoicesVoided, "Number of invoices voided", "{invoices}"),
		receiptsRendered: in.Counter(MetricReceiptsRendered, "Receipt render attempts by outcome", "{receipts}"),
		payments:         in.Counter(MetricPayments, "Number of payments registered", "{payments}"),
		invoiceAmount:    in.Histogram(MetricInvoiceAmount, "Distribution of invoice totals", "HNL", AmountBuckets...),
		paymentAmount:    in.Histogram(MetricPaymentAmount, "Distribution of payment amounts", "HNL", AmountBuckets...),
		renderDuration:   in.Histogram(MetricReceiptRenderTime, "Time spent rendering receipt PDFs", "s", RenderDurationBuckets...),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// InvoiceCreated counts an issued invoice and records its total
func (m *InvoiceMetrics) InvoiceCreated(ctx context.Context, total decimal.Decimal) {
	m.invoicesCreated.Add(ctx, 1)
	m.invoiceAmount.Record(ctx, total.InexactFloat64())
}

func (m *InvoiceMetrics) InvoiceVoided(ctx context.Context) {
	m.invoicesVoided.Add(ctx, 1)
}

// ReceiptRendered counts a receipt render attempt
func (m *InvoiceMetrics) ReceiptRendered(ctx context.Context, ok bool) {
	m.receiptsRendered.Add(ctx, 1, outcomeAttr(ok))
}

// ObserveRenderDuration records how long one receipt took to render
func (m *InvoiceMetrics) ObserveRenderDuration(ctx context.Context, d time.Duration, ok bool) {
	m.renderDuration.Record(ctx, d.Seconds(), outcomeAttr(ok))
}

// PaymentRegistered counts a payment. settled marks the one that paid the
// invoice off.
func (m *InvoiceMetrics) PaymentRegistered(ctx context.Context, amount decimal.Decimal, settled bool) {
	m.payments.Add(ctx, 1, metric.WithAttributes(AttrSettled.Bool(settled)))
	m.paymentAmount.Record(ctx, amount.InexactFloat64())
}

var (
	succeeded = metric.WithAttributeSet(attribute.NewSet(AttrOutcome.String("success")))
	failed    = metric.WithAttributeSet(attribute.NewSet(AttrOutcome.String("failure")))
)

func outcomeAttr(ok bool) metric.MeasurementOption {
	if ok {
		return succeeded
	}
	return failed
}
