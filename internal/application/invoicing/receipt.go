package invoicing

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptRenderer produces the printable receipt of an invoice and stores it.
// It returns the stored file name.
type ReceiptRenderer interface {
	Render(ctx context.Context, doc *ReceiptDocument) (string, error)
}

// ReceiptStore gives access to stored receipt files
type ReceiptStore interface {
	// Open returns the stored file; the caller closes it
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists reports whether a file is stored under name
	Exists(ctx context.Context, name string) (bool, error)
}

// ReceiptDocument is everything printed on a receipt
type ReceiptDocument struct {
	FileName       string
	InvoiceID      int64
	Number         string
	DocumentType   string
	IssuedAt       time.Time
	Status         string
	Customer       ReceiptParty
	EmployeeName   string
	PaymentMethod  string
	Lines          []ReceiptLine
	Discounts      []ReceiptDiscount
	Subtotal       decimal.Decimal
	DiscountTotal  decimal.Decimal
	NetSubtotal    decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Notes          string
	VoidReason     string
	CurrencyDigits int32
	GeneratedAt    time.Time
}

// ReceiptParty is the customer block of a receipt
type ReceiptParty struct {
	Name    string
	RTN     string
	Phone   string
	Email   string
	Address string
}

// ReceiptLine is one row of the itemized table
type ReceiptLine struct {
	Code        string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// ReceiptDiscount is one applied discount
type ReceiptDiscount struct {
	Name   string
	Amount decimal.Decimal
}
