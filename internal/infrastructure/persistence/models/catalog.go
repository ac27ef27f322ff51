package models

import (
	"github.com/optica/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	BaseModel
	Code   string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name   string                `gorm:"type:varchar(200);not null"`
	Price  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status catalog.ProductStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "productos"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity: m.Entity(),
		Code:       m.Code,
		Name:       m.Name,
		Price:      m.Price,
		Status:     m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.SetEntity(p.BaseEntity)
	m.Code = p.Code
	m.Name = p.Name
	m.Price = p.Price
	m.Status = p.Status
}

// ProductAttributeModel is the persistence model for a priced product variant
type ProductAttributeModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	ProductID int64           `gorm:"not null;index"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ProductAttributeModel) TableName() string {
	return "producto_atributos"
}

// ToDomain converts the persistence model to a domain ProductAttribute
func (m *ProductAttributeModel) ToDomain() *catalog.ProductAttribute {
	return &catalog.ProductAttribute{
		ID:        m.ID,
		ProductID: m.ProductID,
		Name:      m.Name,
		Price:     m.Price,
	}
}

// DiscountModel is the persistence model for a discount type
type DiscountModel struct {
	BaseModel
	Name       string          `gorm:"type:varchar(100);not null"`
	Percentage decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Active     bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountModel) TableName() string {
	return "descuentos"
}

// ToDomain converts the persistence model to a domain Discount
func (m *DiscountModel) ToDomain() *catalog.Discount {
	return &catalog.Discount{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		Percentage: m.Percentage,
		Active:     m.Active,
	}
}

// PaymentMethodModel is the persistence model for a payment method
type PaymentMethodModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(50);not null"`
	Active bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentMethodModel) TableName() string {
	return "metodos_pago"
}

// ToDomain converts the persistence model to a domain PaymentMethod
func (m *PaymentMethodModel) ToDomain() *catalog.PaymentMethod {
	return &catalog.PaymentMethod{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		Active:     m.Active,
	}
}
