package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewInvoiceMetrics_NilMeter(t *testing.T) {
	m, err := NewInvoiceMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, m)
}

func TestInvoiceMetrics_Scenario(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	m, err := NewInvoiceMetrics(provider.Meter(TracerName))
	require.NoError(t, err)

	m.InvoiceCreated(ctx, decimal.RequireFromString("258.75"))
	m.ReceiptRendered(ctx, true)
	m.ObserveRenderDuration(ctx, 800*time.Millisecond, true)
	m.PaymentRegistered(ctx, decimal.RequireFromString("100.00"), false)
	m.PaymentRegistered(ctx, decimal.RequireFromString("158.75"), true)
	m.InvoiceVoided(ctx)
	m.ReceiptRendered(ctx, false)

	got := collect(t, reader)

	created := got[MetricInvoicesCreated].Data.(metricdata.Sum[int64])
	require.Len(t, created.DataPoints, 1)
	assert.Equal(t, int64(1), created.DataPoints[0].Value)

	voided := got[MetricInvoicesVoided].Data.(metricdata.Sum[int64])
	require.Len(t, voided.DataPoints, 1)
	assert.Equal(t, int64(1), voided.DataPoints[0].Value)

	amount := got[MetricInvoiceAmount].Data.(metricdata.Histogram[float64])
	require.Len(t, amount.DataPoints, 1)
	assert.InDelta(t, 258.75, amount.DataPoints[0].Sum, 0.001)

	receipts := got[MetricReceiptsRendered].Data.(metricdata.Sum[int64])
	byOutcome := map[string]int64{}
	for _, dp := range receipts.DataPoints {
		v, _ := dp.Attributes.Value(AttrOutcome)
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"success": 1, "failure": 1}, byOutcome)

	payments := got[MetricPayments].Data.(metricdata.Sum[int64])
	bySettled := map[bool]int64{}
	for _, dp := range payments.DataPoints {
		v, _ := dp.Attributes.Value(AttrSettled)
		bySettled[v.AsBool()] = dp.Value
	}
	assert.Equal(t, map[bool]int64{true: 1, false: 1}, bySettled)

	paid := got[MetricPaymentAmount].Data.(metricdata.Histogram[float64])
	require.Len(t, paid.DataPoints, 1)
	assert.InDelta(t, 258.75, paid.DataPoints[0].Sum, 0.001)

	render := got[MetricReceiptRenderTime].Data.(metricdata.Histogram[float64])
	require.Len(t, render.DataPoints, 1)
	assert.Equal(t, uint64(1), render.DataPoints[0].Count)
}
