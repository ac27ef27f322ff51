package partner

import (
	"context"

	"github.com/optica/backend/internal/domain/shared"
)

// Customer is a client of the shop as printed on receipts
type Customer struct {
	shared.BaseEntity
	Name    string
	RTN     string // tax identification number, optional for final consumers
	Phone   string
	Email   string
	Address string
}

// Employee is a staff member who attends a sale
type Employee struct {
	shared.BaseEntity
	Name   string
	Active bool
}

// Reader provides read access to customers and employees.
// Lookups return shared.ErrNotFound when the identifier does not exist.
type Reader interface {
	// FindCustomer finds a customer by ID
	FindCustomer(ctx context.Context, id int64) (*Customer, error)

	// FindEmployee finds an employee by ID
	FindEmployee(ctx context.Context, id int64) (*Employee, error)
}
