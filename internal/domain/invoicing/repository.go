package invoicing

import (
	"context"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings. From and To are calendar days and
// both are included.
type InvoiceFilter struct {
	shared.Filter
	Status     InvoiceStatus
	CustomerID int64
	EmployeeID int64
	From       *time.Time
	To         *time.Time
}

// InvoiceRepository persists invoices together with their lines and discounts
type InvoiceRepository interface {
	// Create inserts the header, lines and discounts in a single transaction.
	// On success the invoice carries its generated ID and number.
	Create(ctx context.Context, invoice *Invoice) error

	// FindByID returns the invoice with its lines and discounts
	FindByID(ctx context.Context, id int64) (*Invoice, error)

	// FindAll returns a page of invoice headers and the total match count
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)

	// UpdateStatus persists a status change using optimistic locking on Version
	UpdateStatus(ctx context.Context, invoice *Invoice) error

	// SetReceiptFile records the generated receipt file name
	SetReceiptFile(ctx context.Context, id int64, filename string) error

	// FindWithoutReceipt returns invoices with an ID above afterID that have
	// no receipt recorded, in ID order
	FindWithoutReceipt(ctx context.Context, afterID int64, limit int) ([]Invoice, error)
}

// PaymentDecision is run while the invoice row is locked. It receives the
// locked invoice and the sum of its active payments, may change the invoice
// status, and returns the payment to insert.
type PaymentDecision func(invoice *Invoice, paid decimal.Decimal) (*Payment, error)

// PaymentReversal is run while the invoice row is locked to void one of its payments
type PaymentReversal func(invoice *Invoice, payment *Payment) error

// PaymentRepository persists payments
type PaymentRepository interface {
	// RegisterLocked locks the invoice row, runs decide and stores the returned
	// payment plus any invoice status change in the same transaction.
	RegisterLocked(ctx context.Context, invoiceID int64, decide PaymentDecision) (*Invoice, *Payment, error)

	// VoidLocked locks the owning invoice row, runs reverse and stores the result
	VoidLocked(ctx context.Context, paymentID int64, reverse PaymentReversal) (*Invoice, *Payment, error)

	// FindByID returns a payment
	FindByID(ctx context.Context, id int64) (*Payment, error)

	// FindByInvoice returns all payments of an invoice, oldest first
	FindByInvoice(ctx context.Context, invoiceID int64) ([]Payment, error)

	// SumActive returns the sum of active payments of an invoice
	SumActive(ctx context.Context, invoiceID int64) (decimal.Decimal, error)
}
