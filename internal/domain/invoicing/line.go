package invoicing

import (
	"strings"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceLine is one priced product or service on an invoice.
// Lines are created together with their invoice and never change afterwards.
type InvoiceLine struct {
	ID          int64
	InvoiceID   int64
	ProductID   *int64 // nil for manually entered lines
	AttributeID *int64 // optional product variant (lens treatment, frame color)
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewManualLine creates a line typed in by the cashier, not taken from the catalog
func NewManualLine(description string, quantity int, unitPrice decimal.Decimal) (InvoiceLine, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return InvoiceLine{}, shared.NewDomainError(CodeInvalidDescription, "Manual lines require a description")
	}
	if len(description) > 255 {
		return InvoiceLine{}, shared.NewDomainError(CodeInvalidDescription, "Description cannot exceed 255 characters")
	}
	if err := validateLineAmounts(quantity, unitPrice); err != nil {
		return InvoiceLine{}, err
	}
	return InvoiceLine{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

// NewCatalogLine creates a line referencing a catalog product
func NewCatalogLine(productID int64, attributeID *int64, description string, quantity int, unitPrice decimal.Decimal) (InvoiceLine, error) {
	if productID <= 0 {
		return InvoiceLine{}, shared.NewDomainError(CodeInvalidReference, "Catalog lines require a valid product")
	}
	if attributeID != nil && *attributeID <= 0 {
		return InvoiceLine{}, shared.NewDomainError(CodeInvalidReference, "Product attribute must be positive")
	}
	if err := validateLineAmounts(quantity, unitPrice); err != nil {
		return InvoiceLine{}, err
	}
	pid := productID
	return InvoiceLine{
		ProductID:   &pid,
		AttributeID: attributeID,
		Description: strings.TrimSpace(description),
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}, nil
}

// IsManual reports whether the line was entered without a catalog product
func (l InvoiceLine) IsManual() bool {
	return l.ProductID == nil
}

// Amount returns the priced part of the line for the calculator
func (l InvoiceLine) Amount() LineAmount {
	return LineAmount{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
}

func validateLineAmounts(quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewDomainError(CodeInvalidQuantity, "Quantity must be a positive integer")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(CodeInvalidPrice, "Unit price cannot be negative")
	}
	return nil
}
