package models

import (
	"time"

	"github.com/optica/backend/internal/domain/shared"
)

// BaseModel holds the columns every table shares
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	*m = BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

// AggregateModel adds the optimistic lock column. Updates filter on the
// previous version, see the repositories.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null"`
}

func (m *AggregateModel) Root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version}
}

func (m *AggregateModel) SetRoot(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}

// All lists the models in foreign key order, parents first
func All() []any {
	return []any{
		// reference data
		&CustomerModel{},
		&EmployeeModel{},
		&ProductModel{},
		&ProductAttributeModel{},
		&DiscountModel{},
		&PaymentMethodModel{},
		// invoicing
		&InvoiceModel{},
		&InvoiceLineModel{},
		&InvoiceDiscountModel{},
		&PaymentModel{},
	}
}
