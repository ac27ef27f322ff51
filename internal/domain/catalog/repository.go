package catalog

import (
	"context"
)

// Reader provides read access to catalog reference data.
// Lookups return shared.ErrNotFound when the identifier does not exist.
type Reader interface {
	// FindProduct finds a product by ID
	FindProduct(ctx context.Context, id int64) (*Product, error)

	// FindProductAttribute finds a product attribute by ID
	FindProductAttribute(ctx context.Context, id int64) (*ProductAttribute, error)

	// FindDiscount finds a discount type by ID
	FindDiscount(ctx context.Context, id int64) (*Discount, error)

	// FindPaymentMethod finds a payment method by ID
	FindPaymentMethod(ctx context.Context, id int64) (*PaymentMethod, error)
}
