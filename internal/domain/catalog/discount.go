package catalog

import (
	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Discount is a named discount type with a default percentage
type Discount struct {
	shared.BaseEntity
	Name       string
	Percentage decimal.Decimal
	Active     bool
}

// PaymentMethod is a way of paying (cash, card, transfer)
type PaymentMethod struct {
	shared.BaseEntity
	Name   string
	Active bool
}
