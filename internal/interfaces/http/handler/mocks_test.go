package handler

import (
	"context"
	"io"

	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/stretchr/testify/mock"
)

// returned reads the first return value of a mocked call, which tests set
// to nil when the call fails
func returned[T any](args mock.Arguments) T {
	v, _ := args.Get(0).(T)
	return v
}

type MockInvoiceService struct{ mock.Mock }

func (m *MockInvoiceService) Create(ctx context.Context, actor invoicingapp.Actor, req invoicingapp.CreateInvoiceRequest, idempotencyKey string) (*invoicingapp.CreateInvoiceResult, error) {
	args := m.Called(ctx, actor, req, idempotencyKey)
	return returned[*invoicingapp.CreateInvoiceResult](args), args.Error(1)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, id int64) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, id)
	return returned[*invoicingapp.InvoiceResponse](args), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, filter invoicingapp.InvoiceListFilter) ([]invoicingapp.InvoiceResponse, int64, error) {
	args := m.Called(ctx, filter)
	total, _ := args.Get(1).(int64)
	return returned[[]invoicingapp.InvoiceResponse](args), total, args.Error(2)
}

func (m *MockInvoiceService) Void(ctx context.Context, actor invoicingapp.Actor, id int64, req invoicingapp.VoidInvoiceRequest) (*invoicingapp.InvoiceResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return returned[*invoicingapp.InvoiceResponse](args), args.Error(1)
}

func (m *MockInvoiceService) Amend(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInvoiceService) RegenerateReceipt(ctx context.Context, id int64) (*invoicingapp.ReceiptResponse, error) {
	args := m.Called(ctx, id)
	return returned[*invoicingapp.ReceiptResponse](args), args.Error(1)
}

func (m *MockInvoiceService) OpenReceipt(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	args := m.Called(ctx, id)
	return returned[io.ReadCloser](args), args.String(1), args.Error(2)
}

func (m *MockInvoiceService) ListForExport(ctx context.Context, filter invoicingapp.InvoiceListFilter, limit int) ([]invoicing.Invoice, error) {
	args := m.Called(ctx, filter, limit)
	return returned[[]invoicing.Invoice](args), args.Error(1)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) Register(ctx context.Context, actor invoicingapp.Actor, req invoicingapp.RegisterPaymentRequest) (*invoicingapp.PaymentResult, error) {
	args := m.Called(ctx, actor, req)
	return returned[*invoicingapp.PaymentResult](args), args.Error(1)
}

func (m *MockPaymentService) Void(ctx context.Context, id int64, req invoicingapp.VoidPaymentRequest) (*invoicingapp.PaymentResult, error) {
	args := m.Called(ctx, id, req)
	return returned[*invoicingapp.PaymentResult](args), args.Error(1)
}

func (m *MockPaymentService) ListByInvoice(ctx context.Context, invoiceID int64) (*invoicingapp.InvoicePaymentsResponse, error) {
	args := m.Called(ctx, invoiceID)
	return returned[*invoicingapp.InvoicePaymentsResponse](args), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }
