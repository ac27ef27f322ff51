package models

import (
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate header.
// Number is NULL between the header insert and the number assignment of the
// same transaction, so the unique index never sees duplicates.
type InvoiceModel struct {
	AggregateModel
	Number          *string                 `gorm:"type:varchar(30);uniqueIndex"`
	IssuedAt        time.Time               `gorm:"not null;index"`
	DocumentType    string                  `gorm:"type:varchar(50);not null"`
	CustomerID      int64                   `gorm:"not null;index"`
	EmployeeID      int64                   `gorm:"not null;index"`
	PaymentMethodID int64                   `gorm:"not null"`
	Status          invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	IssuedStatus    invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:active"`
	Subtotal        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	DiscountTotal   decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	NetSubtotal     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	TaxRate         decimal.Decimal         `gorm:"type:decimal(6,4);not null"`
	TaxAmount       decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Notes           string                  `gorm:"type:text"`
	ReceiptFile     *string                 `gorm:"type:varchar(255)"`
	IssuedBy        string                  `gorm:"type:varchar(100)"`
	PaidAt          *time.Time
	VoidedAt        *time.Time
	VoidReason      string                 `gorm:"type:text"`
	VoidedBy        string                 `gorm:"type:varchar(100)"`
	Lines           []InvoiceLineModel     `gorm:"foreignKey:InvoiceID"`
	Discounts       []InvoiceDiscountModel `gorm:"foreignKey:InvoiceID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "facturas"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		BaseAggregateRoot: m.Root(),
		IssuedAt:          m.IssuedAt,
		DocumentType:      m.DocumentType,
		CustomerID:        m.CustomerID,
		EmployeeID:        m.EmployeeID,
		PaymentMethodID:   m.PaymentMethodID,
		Status:            m.Status,
		IssuedStatus:      m.IssuedStatus,
		Subtotal:          m.Subtotal,
		DiscountTotal:     m.DiscountTotal,
		NetSubtotal:       m.NetSubtotal,
		TaxRate:           m.TaxRate,
		TaxAmount:         m.TaxAmount,
		Total:             m.Total,
		Notes:             m.Notes,
		ReceiptFile:       m.ReceiptFile,
		IssuedBy:          m.IssuedBy,
		PaidAt:            m.PaidAt,
		VoidedAt:          m.VoidedAt,
		VoidReason:        m.VoidReason,
		VoidedBy:          m.VoidedBy,
	}
	if m.Number != nil {
		inv.Number = *m.Number
	}
	for i := range m.Lines {
		inv.Lines = append(inv.Lines, m.Lines[i].ToDomain())
	}
	for i := range m.Discounts {
		inv.Discounts = append(inv.Discounts, m.Discounts[i].ToDomain())
	}
	return inv
}

// FromDomain populates the header fields from a domain Invoice.
// Lines and discounts are mapped separately by the repository.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.SetRoot(inv.BaseAggregateRoot)
	m.Number = nil
	if inv.Number != "" {
		number := inv.Number
		m.Number = &number
	}
	m.IssuedAt = inv.IssuedAt
	m.DocumentType = inv.DocumentType
	m.CustomerID = inv.CustomerID
	m.EmployeeID = inv.EmployeeID
	m.PaymentMethodID = inv.PaymentMethodID
	m.Status = inv.Status
	m.IssuedStatus = inv.IssuedStatus
	m.Subtotal = inv.Subtotal
	m.DiscountTotal = inv.DiscountTotal
	m.NetSubtotal = inv.NetSubtotal
	m.TaxRate = inv.TaxRate
	m.TaxAmount = inv.TaxAmount
	m.Total = inv.Total
	m.Notes = inv.Notes
	m.ReceiptFile = inv.ReceiptFile
	m.IssuedBy = inv.IssuedBy
	m.PaidAt = inv.PaidAt
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
	m.VoidedBy = inv.VoidedBy
}

// InvoiceModelFromDomain creates a header model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineModel is the persistence model for an invoice line
type InvoiceLineModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	InvoiceID   int64  `gorm:"not null;index"`
	ProductID   *int64 `gorm:"index"`
	AttributeID *int64
	Description string          `gorm:"type:varchar(255);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "factura_detalles"
}

// ToDomain converts the persistence model to a domain InvoiceLine
func (m *InvoiceLineModel) ToDomain() invoicing.InvoiceLine {
	return invoicing.InvoiceLine{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		ProductID:   m.ProductID,
		AttributeID: m.AttributeID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		LineTotal:   m.LineTotal,
	}
}

// InvoiceLineModelFromDomain creates a line model from a domain InvoiceLine
func InvoiceLineModelFromDomain(l invoicing.InvoiceLine) InvoiceLineModel {
	return InvoiceLineModel{
		ID:          l.ID,
		InvoiceID:   l.InvoiceID,
		ProductID:   l.ProductID,
		AttributeID: l.AttributeID,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		LineTotal:   l.LineTotal,
	}
}

// InvoiceDiscountModel is the persistence model for a discount applied to an invoice
type InvoiceDiscountModel struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	InvoiceID  int64           `gorm:"not null;index"`
	DiscountID int64           `gorm:"not null"`
	Name       string          `gorm:"type:varchar(100)"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceDiscountModel) TableName() string {
	return "factura_descuentos"
}

// ToDomain converts the persistence model to a domain InvoiceDiscount
func (m *InvoiceDiscountModel) ToDomain() invoicing.InvoiceDiscount {
	return invoicing.InvoiceDiscount{
		ID:         m.ID,
		InvoiceID:  m.InvoiceID,
		DiscountID: m.DiscountID,
		Name:       m.Name,
		Amount:     m.Amount,
	}
}

// InvoiceDiscountModelFromDomain creates a discount model from a domain InvoiceDiscount
func InvoiceDiscountModelFromDomain(d invoicing.InvoiceDiscount) InvoiceDiscountModel {
	return InvoiceDiscountModel{
		ID:         d.ID,
		InvoiceID:  d.InvoiceID,
		DiscountID: d.DiscountID,
		Name:       d.Name,
		Amount:     d.Amount,
	}
}

// PaymentModel is the persistence model for a Payment
type PaymentModel struct {
	BaseModel
	InvoiceID       int64                   `gorm:"not null;index"`
	PaymentMethodID int64                   `gorm:"not null"`
	Amount          decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	PaidAt          time.Time               `gorm:"not null"`
	Notes           string                  `gorm:"type:text"`
	Status          invoicing.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	ReceivedBy      string                  `gorm:"type:varchar(100)"`
	VoidedAt        *time.Time
	VoidReason      string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "pagos"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *invoicing.Payment {
	return &invoicing.Payment{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		InvoiceID:       m.InvoiceID,
		PaymentMethodID: m.PaymentMethodID,
		Amount:          m.Amount,
		PaidAt:          m.PaidAt,
		Notes:           m.Notes,
		Status:          m.Status,
		ReceivedBy:      m.ReceivedBy,
		VoidedAt:        m.VoidedAt,
		VoidReason:      m.VoidReason,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *invoicing.Payment) {
	m.SetEntity(p.BaseEntity)
	m.InvoiceID = p.InvoiceID
	m.PaymentMethodID = p.PaymentMethodID
	m.Amount = p.Amount
	m.PaidAt = p.PaidAt
	m.Notes = p.Notes
	m.Status = p.Status
	m.ReceivedBy = p.ReceivedBy
	m.VoidedAt = p.VoidedAt
	m.VoidReason = p.VoidReason
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *invoicing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
