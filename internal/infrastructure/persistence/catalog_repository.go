package persistence

import (
	"context"
	"errors"

	"github.com/optica/backend/internal/domain/catalog"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCatalogRepository reads products, attributes, discount types and payment methods
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindProduct finds a product by ID
func (r *GormCatalogRepository) FindProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindProductAttribute finds a product attribute by ID
func (r *GormCatalogRepository) FindProductAttribute(ctx context.Context, id int64) (*catalog.ProductAttribute, error) {
	var model models.ProductAttributeModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindDiscount finds a discount type by ID
func (r *GormCatalogRepository) FindDiscount(ctx context.Context, id int64) (*catalog.Discount, error) {
	var model models.DiscountModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindPaymentMethod finds a payment method by ID
func (r *GormCatalogRepository) FindPaymentMethod(ctx context.Context, id int64) (*catalog.PaymentMethod, error) {
	var model models.PaymentMethodModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// Ensure GormCatalogRepository implements catalog.Reader
var _ catalog.Reader = (*GormCatalogRepository)(nil)
