package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts the header, then numbers it from the generated key, then
// inserts lines and discounts. Any failure rolls the whole invoice back.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *invoicing.Invoice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := models.InvoiceModelFromDomain(invoice)
		header.ID = 0
		header.Number = nil
		if err := tx.Omit(clause.Associations).Create(header).Error; err != nil {
			return fmt.Errorf("insert invoice header: %w", err)
		}

		invoice.AssignIdentity(header.ID)
		invoice.CreatedAt = header.CreatedAt
		invoice.UpdatedAt = header.UpdatedAt

		if err := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", header.ID).
			Update("number", invoice.Number).Error; err != nil {
			return fmt.Errorf("assign invoice number: %w", err)
		}

		if len(invoice.Lines) > 0 {
			lines := make([]models.InvoiceLineModel, len(invoice.Lines))
			for i, l := range invoice.Lines {
				lines[i] = models.InvoiceLineModelFromDomain(l)
				lines[i].ID = 0
			}
			if err := tx.Create(&lines).Error; err != nil {
				return fmt.Errorf("insert invoice lines: %w", err)
			}
			for i := range lines {
				invoice.Lines[i].ID = lines[i].ID
			}
		}

		if len(invoice.Discounts) > 0 {
			discounts := make([]models.InvoiceDiscountModel, len(invoice.Discounts))
			for i, d := range invoice.Discounts {
				discounts[i] = models.InvoiceDiscountModelFromDomain(d)
				discounts[i].ID = 0
			}
			if err := tx.Create(&discounts).Error; err != nil {
				return fmt.Errorf("insert invoice discounts: %w", err)
			}
			for i := range discounts {
				invoice.Discounts[i].ID = discounts[i].ID
			}
		}
		return nil
	})
	if err != nil {
		invoice.AssignIdentity(0)
		invoice.Number = ""
		for i := range invoice.Lines {
			invoice.Lines[i].ID = 0
		}
		for i := range invoice.Discounts {
			invoice.Discounts[i].ID = 0
		}
		return err
	}
	return nil
}

// FindByID finds an invoice with its lines and discounts
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Lines", orderByID).
		Preload("Discounts", orderByID).
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of invoice headers
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := query.Order(invoiceSortColumns.orderBy(filter.OrderBy, filter.OrderDir, "issued_at"))
	if filter.PageSize > 0 {
		page = page.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.InvoiceModel
	if err := page.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.EmployeeID > 0 {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.From != nil {
		query = query.Where("issued_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("issued_at < ?", dayAfter(*filter.To))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
	}
	return query
}

// UpdateStatus writes the status fields guarded by the previous version.
// The domain increments Version on every transition, so the stored row must
// still carry Version-1.
func (r *GormInvoiceRepository) UpdateStatus(ctx context.Context, invoice *invoicing.Invoice) error {
	result := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(statusColumns(invoice))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("id = ?", invoice.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return invoicing.ErrInvoiceNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SetReceiptFile records the receipt file name without touching the version
func (r *GormInvoiceRepository) SetReceiptFile(ctx context.Context, id int64, filename string) error {
	result := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		Update("receipt_file", filename)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return invoicing.ErrInvoiceNotFound
	}
	return nil
}

// FindWithoutReceipt returns invoices after afterID whose receipt was never
// recorded, oldest first
func (r *GormInvoiceRepository) FindWithoutReceipt(ctx context.Context, afterID int64, limit int) ([]invoicing.Invoice, error) {
	query := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("receipt_file IS NULL OR receipt_file = ?", "").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.InvoiceModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	invoices := make([]invoicing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// dayAfter is midnight following the calendar day of t, the exclusive upper
// bound of a date range whose last day is t
func dayAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func statusColumns(invoice *invoicing.Invoice) map[string]interface{} {
	return map[string]interface{}{
		"status":      invoice.Status,
		"paid_at":     invoice.PaidAt,
		"voided_at":   invoice.VoidedAt,
		"void_reason": invoice.VoidReason,
		"voided_by":   invoice.VoidedBy,
		"version":     invoice.Version,
		"updated_at":  time.Now(),
	}
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
