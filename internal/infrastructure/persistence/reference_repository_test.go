package persistence

import (
	"context"
	"testing"

	"github.com/optica/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCatalogRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormCatalogRepository(db.DB)
	ctx := context.Background()

	product, err := repo.FindProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "LEN-001", product.Code)
	assert.True(t, product.IsActive())
	assert.Equal(t, "100.00", product.Price.StringFixed(2))

	attr, err := repo.FindProductAttribute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), attr.ProductID)
	assert.Equal(t, "Antirreflejo", attr.Name)

	discount, err := repo.FindDiscount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10", discount.Percentage.String())
	assert.True(t, discount.Active)

	method, err := repo.FindPaymentMethod(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Efectivo", method.Name)

	_, err = repo.FindProduct(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindProductAttribute(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindDiscount(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindPaymentMethod(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPartnerRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormPartnerRepository(db.DB)
	ctx := context.Background()

	customer, err := repo.FindCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", customer.Name)
	assert.Equal(t, "08011990123456", customer.RTN)

	employee, err := repo.FindEmployee(ctx, 1)
	require.NoError(t, err)
	assert.True(t, employee.Active)

	_, err = repo.FindCustomer(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindEmployee(ctx, 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
