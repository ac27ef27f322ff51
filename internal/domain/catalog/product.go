package catalog

import (
	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a catalog product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a sellable frame, lens, accessory or service.
// Products are managed elsewhere; invoicing only reads them.
type Product struct {
	shared.BaseEntity
	Code   string
	Name   string
	Price  decimal.Decimal
	Status ProductStatus
}

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// ProductAttribute is a priced variant of a product, e.g. an anti-reflective treatment
type ProductAttribute struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
}
