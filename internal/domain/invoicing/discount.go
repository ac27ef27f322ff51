package invoicing

import (
	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceDiscount is a discount applied to an invoice.
// The amount is stored as an absolute value; later changes to the discount
// definition do not affect issued invoices.
type InvoiceDiscount struct {
	ID         int64
	InvoiceID  int64
	DiscountID int64
	Name       string
	Amount     decimal.Decimal
}

// NewInvoiceDiscount creates a discount line for the given discount type
func NewInvoiceDiscount(discountID int64, name string, amount decimal.Decimal) (InvoiceDiscount, error) {
	if discountID <= 0 {
		return InvoiceDiscount{}, shared.NewDomainError(CodeInvalidReference, "Discount type must be positive")
	}
	if !amount.IsPositive() {
		return InvoiceDiscount{}, shared.NewDomainError(CodeInvalidAmount, "Discount amount must be positive")
	}
	return InvoiceDiscount{
		DiscountID: discountID,
		Name:       name,
		Amount:     amount,
	}, nil
}
