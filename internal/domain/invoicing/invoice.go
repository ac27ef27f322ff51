package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultDocumentType is used when the request does not name one
const DefaultDocumentType = "FACTURA"

// Invoice is the aggregate root for an issued invoice.
// Once created only its status (and the receipt file reference) may change.
type Invoice struct {
	shared.BaseAggregateRoot
	Number          string
	IssuedAt        time.Time
	DocumentType    string
	CustomerID      int64
	EmployeeID      int64
	PaymentMethodID int64
	Status          InvoiceStatus
	IssuedStatus    InvoiceStatus // active or pending; a reopened invoice returns to it
	Subtotal        decimal.Decimal
	DiscountTotal   decimal.Decimal
	NetSubtotal     decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	Notes           string
	ReceiptFile     *string
	IssuedBy        string
	PaidAt          *time.Time
	VoidedAt        *time.Time
	VoidReason      string
	VoidedBy        string
	Lines           []InvoiceLine
	Discounts       []InvoiceDiscount
}

// IssueInvoiceInput groups the header data of a new invoice
type IssueInvoiceInput struct {
	DocumentType    string
	CustomerID      int64
	EmployeeID      int64
	PaymentMethodID int64
	Status          InvoiceStatus // empty means active
	Notes           string
	IssuedBy        string
	Lines           []InvoiceLine
	Discounts       []InvoiceDiscount
}

// NewInvoice validates the input, computes the totals and returns an unsaved invoice
func NewInvoice(in IssueInvoiceInput, calc *Calculator) (*Invoice, error) {
	if in.CustomerID <= 0 {
		return nil, shared.NewDomainError(CodeInvalidReference, "Customer ID must be positive")
	}
	if in.EmployeeID <= 0 {
		return nil, shared.NewDomainError(CodeInvalidReference, "Employee ID must be positive")
	}
	if in.PaymentMethodID <= 0 {
		return nil, shared.NewDomainError(CodeInvalidReference, "Payment method ID must be positive")
	}
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}

	status := in.Status
	if status == "" {
		status = InvoiceStatusActive
	}
	if status != InvoiceStatusActive && status != InvoiceStatusPending {
		return nil, shared.NewDomainError(CodeInvalidStatus,
			fmt.Sprintf("Invoices can only be issued as %s or %s", InvoiceStatusActive, InvoiceStatusPending))
	}

	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		docType = DefaultDocumentType
	}

	lines := make([]InvoiceLine, len(in.Lines))
	amounts := make([]LineAmount, len(in.Lines))
	for i, l := range in.Lines {
		l.LineTotal = calc.LineTotal(l.Quantity, l.UnitPrice)
		lines[i] = l
		amounts[i] = l.Amount()
	}

	discounts := make([]InvoiceDiscount, len(in.Discounts))
	discountAmounts := make([]decimal.Decimal, len(in.Discounts))
	for i, d := range in.Discounts {
		d.Amount = calc.Policy().Round(d.Amount)
		discounts[i] = d
		discountAmounts[i] = d.Amount
	}

	totals := calc.Compute(amounts, discountAmounts)
	if totals.NetSubtotal.IsNegative() {
		return nil, shared.NewDomainError(CodeDiscountExceedsSubtotal,
			fmt.Sprintf("Discounts (%s) exceed the subtotal (%s)",
				totals.DiscountTotal.StringFixed(calc.Policy().Precision),
				totals.Subtotal.StringFixed(calc.Policy().Precision)))
	}

	root := shared.NewBaseAggregateRoot()
	return &Invoice{
		BaseAggregateRoot: root,
		IssuedAt:          root.CreatedAt,
		DocumentType:      docType,
		CustomerID:        in.CustomerID,
		EmployeeID:        in.EmployeeID,
		PaymentMethodID:   in.PaymentMethodID,
		Status:            status,
		IssuedStatus:      status,
		Subtotal:          totals.Subtotal,
		DiscountTotal:     totals.DiscountTotal,
		NetSubtotal:       totals.NetSubtotal,
		TaxRate:           totals.TaxRate,
		TaxAmount:         totals.Tax,
		Total:             totals.Total,
		Notes:             strings.TrimSpace(in.Notes),
		IssuedBy:          in.IssuedBy,
		Lines:             lines,
		Discounts:         discounts,
	}, nil
}

// AssignIdentity stamps the generated key on the header, its lines and discounts
// and derives the human readable invoice number from it.
func (i *Invoice) AssignIdentity(id int64) {
	i.ID = id
	i.Number = FormatInvoiceNumber(i.IssuedAt, id)
	for idx := range i.Lines {
		i.Lines[idx].InvoiceID = id
	}
	for idx := range i.Discounts {
		i.Discounts[idx].InvoiceID = id
	}
}

// FormatInvoiceNumber returns the printed invoice number, e.g. FAC-2026-000042
func FormatInvoiceNumber(issuedAt time.Time, id int64) string {
	return fmt.Sprintf("FAC-%d-%06d", issuedAt.Year(), id)
}

// Amend is the only way to request a field change on an issued invoice and it always fails.
func (i *Invoice) Amend() error {
	return ErrInvoiceImmutable
}

// Void cancels the invoice without deleting it
func (i *Invoice) Void(reason, by string) error {
	if i.Status == InvoiceStatusVoided {
		return ErrInvoiceAlreadyVoided
	}
	if !i.Status.CanTransitionTo(InvoiceStatusVoided) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot void invoice in %s status", i.Status))
	}

	now := time.Now()
	i.Status = InvoiceStatusVoided
	i.VoidedAt = &now
	i.VoidReason = strings.TrimSpace(reason)
	i.VoidedBy = by
	i.UpdatedAt = now
	i.IncrementVersion()
	return nil
}

// CanAcceptPayment checks whether a new payment may be registered
func (i *Invoice) CanAcceptPayment() error {
	switch i.Status {
	case InvoiceStatusVoided:
		return ErrInvoiceVoided
	case InvoiceStatusPaid:
		return ErrInvoiceAlreadyPaid
	}
	return nil
}

// Balance returns what is still owed given the sum of active payments
func (i *Invoice) Balance(paid decimal.Decimal) decimal.Decimal {
	return i.Total.Sub(paid)
}

// ApplyPayment checks a new payment against the outstanding balance.
// When the payment settles the invoice exactly the invoice becomes paid.
// It returns the balance remaining after the payment.
func (i *Invoice) ApplyPayment(alreadyPaid decimal.Decimal, p *Payment) (decimal.Decimal, error) {
	if err := i.CanAcceptPayment(); err != nil {
		return decimal.Zero, err
	}
	if p.InvoiceID != i.ID {
		return decimal.Zero, shared.NewDomainError(CodeInvalidReference, "Payment belongs to a different invoice")
	}

	balance := i.Balance(alreadyPaid)
	if p.Amount.GreaterThan(balance) {
		return decimal.Zero, shared.NewDomainError(CodePaymentExceedsBalance,
			fmt.Sprintf("Payment of %s exceeds the outstanding balance of %s",
				p.Amount.StringFixed(2), balance.StringFixed(2)))
	}

	remaining := balance.Sub(p.Amount)
	if remaining.IsZero() {
		if err := i.markPaid(); err != nil {
			return decimal.Zero, err
		}
	}
	return remaining, nil
}

// ReversePayment voids a payment of this invoice. A paid invoice reopens in
// the status it was issued with.
func (i *Invoice) ReversePayment(p *Payment, reason string) error {
	if p.InvoiceID != i.ID {
		return shared.NewDomainError(CodeInvalidReference, "Payment belongs to a different invoice")
	}
	if err := p.Void(reason); err != nil {
		return err
	}
	if i.Status == InvoiceStatusPaid {
		i.Status = i.reopenStatus()
		i.PaidAt = nil
		i.Touch()
		i.IncrementVersion()
	}
	return nil
}

func (i *Invoice) reopenStatus() InvoiceStatus {
	if i.IssuedStatus == InvoiceStatusPending {
		return InvoiceStatusPending
	}
	return InvoiceStatusActive
}

func (i *Invoice) markPaid() error {
	if !i.Status.CanTransitionTo(InvoiceStatusPaid) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice in %s status as paid", i.Status))
	}
	now := time.Now()
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
	return nil
}

// AttachReceipt records the generated receipt file name
func (i *Invoice) AttachReceipt(filename string) {
	i.ReceiptFile = &filename
}

// HasReceipt reports whether a receipt file has been recorded
func (i *Invoice) HasReceipt() bool {
	return i.ReceiptFile != nil && *i.ReceiptFile != ""
}

// ReceiptFileName returns the deterministic receipt file name for an invoice ID
func ReceiptFileName(invoiceID int64) string {
	return fmt.Sprintf("factura-%d.pdf", invoiceID)
}
