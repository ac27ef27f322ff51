package models

import (
	"github.com/optica/backend/internal/domain/partner"
)

// CustomerModel is the persistence model for the Customer domain entity.
type CustomerModel struct {
	BaseModel
	Name    string `gorm:"type:varchar(200);not null"`
	RTN     string `gorm:"column:rtn;type:varchar(20);index"`
	Phone   string `gorm:"type:varchar(50)"`
	Email   string `gorm:"type:varchar(200)"`
	Address string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "clientes"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		RTN:        m.RTN,
		Phone:      m.Phone,
		Email:      m.Email,
		Address:    m.Address,
	}
}

// FromDomain populates the persistence model from a domain Customer entity.
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.SetEntity(c.BaseEntity)
	m.Name = c.Name
	m.RTN = c.RTN
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
}

// EmployeeModel is the persistence model for the Employee domain entity.
type EmployeeModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(200);not null"`
	Active bool   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EmployeeModel) TableName() string {
	return "empleados"
}

// ToDomain converts the persistence model to a domain Employee entity.
func (m *EmployeeModel) ToDomain() *partner.Employee {
	return &partner.Employee{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		Active:     m.Active,
	}
}
