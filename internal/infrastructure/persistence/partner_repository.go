package persistence

import (
	"context"

	"github.com/optica/backend/internal/domain/partner"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPartnerRepository reads customers and employees
type GormPartnerRepository struct {
	db *gorm.DB
}

// NewGormPartnerRepository creates a new GormPartnerRepository
func NewGormPartnerRepository(db *gorm.DB) *GormPartnerRepository {
	return &GormPartnerRepository{db: db}
}

// FindCustomer finds a customer by ID
func (r *GormPartnerRepository) FindCustomer(ctx context.Context, id int64) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindEmployee finds an employee by ID
func (r *GormPartnerRepository) FindEmployee(ctx context.Context, id int64) (*partner.Employee, error) {
	var model models.EmployeeModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Ensure GormPartnerRepository implements partner.Reader
var _ partner.Reader = (*GormPartnerRepository)(nil)
