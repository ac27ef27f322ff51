package invoicing

import (
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payment records money received against an invoice
type Payment struct {
	shared.BaseEntity
	InvoiceID       int64
	PaymentMethodID int64
	Amount          decimal.Decimal
	PaidAt          time.Time
	Notes           string
	Status          PaymentStatus
	ReceivedBy      string
	VoidedAt        *time.Time
	VoidReason      string
}

// NewPayment creates an active payment
func NewPayment(invoiceID, paymentMethodID int64, amount decimal.Decimal, notes, receivedBy string) (*Payment, error) {
	if invoiceID <= 0 {
		return nil, shared.NewDomainError(CodeInvalidReference, "Invoice ID must be positive")
	}
	if paymentMethodID <= 0 {
		return nil, shared.NewDomainError(CodeInvalidReference, "Payment method ID must be positive")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Payment amount must be positive")
	}
	base := shared.NewBaseEntity()
	return &Payment{
		BaseEntity:      base,
		InvoiceID:       invoiceID,
		PaymentMethodID: paymentMethodID,
		Amount:          amount,
		PaidAt:          base.CreatedAt,
		Notes:           strings.TrimSpace(notes),
		Status:          PaymentStatusActive,
		ReceivedBy:      receivedBy,
	}, nil
}

// IsActive reports whether the payment counts toward the invoice balance
func (p *Payment) IsActive() bool {
	return p.Status == PaymentStatusActive
}

// Void marks the payment as voided
func (p *Payment) Void(reason string) error {
	if p.Status == PaymentStatusVoided {
		return ErrPaymentAlreadyVoided
	}
	now := time.Now()
	p.Status = PaymentStatusVoided
	p.VoidedAt = &now
	p.VoidReason = strings.TrimSpace(reason)
	p.UpdatedAt = now
	return nil
}

// SumActive returns the total of active payments
func SumActive(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.IsActive() {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}
