package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// Registering and voiding payments lock the owning invoice row so concurrent
// payments against the same invoice are serialized.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// RegisterLocked locks the invoice, sums its active payments, lets decide
// validate the new payment and persists the payment plus any status change.
func (r *GormPaymentRepository) RegisterLocked(ctx context.Context, invoiceID int64, decide invoicing.PaymentDecision) (*invoicing.Invoice, *invoicing.Payment, error) {
	var (
		invoice *invoicing.Invoice
		payment *invoicing.Payment
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		invoice = locked.ToDomain()
		previousVersion := invoice.Version

		paid, err := sumActive(tx, invoiceID)
		if err != nil {
			return err
		}

		payment, err = decide(invoice, paid)
		if err != nil {
			return err
		}

		model := models.PaymentModelFromDomain(payment)
		model.ID = 0
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payment.ID = model.ID
		payment.CreatedAt = model.CreatedAt
		payment.UpdatedAt = model.UpdatedAt

		if invoice.Version != previousVersion {
			return saveInvoiceStatus(tx, invoice, previousVersion)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, payment, nil
}

// VoidLocked locks the payment's invoice, lets reverse void the payment and
// persists the payment and invoice changes together.
func (r *GormPaymentRepository) VoidLocked(ctx context.Context, paymentID int64, reverse invoicing.PaymentReversal) (*invoicing.Invoice, *invoicing.Payment, error) {
	var (
		invoice *invoicing.Invoice
		payment *invoicing.Payment
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PaymentModel
		if err := tx.First(&current, paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invoicing.ErrPaymentNotFound
			}
			return err
		}

		locked, err := lockInvoice(tx, current.InvoiceID)
		if err != nil {
			return err
		}
		invoice = locked.ToDomain()
		previousVersion := invoice.Version

		// Re-read under the invoice lock so a concurrent void is observed
		if err := tx.First(&current, paymentID).Error; err != nil {
			return err
		}
		payment = current.ToDomain()

		if err := reverse(invoice, payment); err != nil {
			return err
		}

		result := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND status = ?", payment.ID, invoicing.PaymentStatusActive).
			Updates(map[string]interface{}{
				"status":      payment.Status,
				"voided_at":   payment.VoidedAt,
				"void_reason": payment.VoidReason,
				"updated_at":  payment.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicing.ErrPaymentAlreadyVoided
		}

		if invoice.Version != previousVersion {
			return saveInvoiceStatus(tx, invoice, previousVersion)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return invoice, payment, nil
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id int64) (*invoicing.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns every payment of an invoice, oldest first
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID int64) ([]invoicing.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]invoicing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// SumActive returns the sum of active payments of an invoice
func (r *GormPaymentRepository) SumActive(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	return sumActive(r.db.WithContext(ctx), invoiceID)
}

// sumActive adds amounts in Go so the result keeps decimal precision on every driver
func sumActive(db *gorm.DB, invoiceID int64) (decimal.Decimal, error) {
	var rows []models.PaymentModel
	if err := db.Select("id", "invoice_id", "amount", "status").
		Where("invoice_id = ? AND status = ?", invoiceID, invoicing.PaymentStatusActive).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	payments := make([]invoicing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return invoicing.SumActive(payments), nil
}

// lockInvoice reads the invoice header with SELECT ... FOR UPDATE.
// SQLite has no row locks; its single writer connection serializes the transaction instead.
func lockInvoice(tx *gorm.DB, invoiceID int64) (*models.InvoiceModel, error) {
	query := tx
	if tx.Dialector.Name() != DriverSQLite {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.InvoiceModel
	if err := query.First(&model, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &model, nil
}

// saveInvoiceStatus flips the invoice status while it is still open and unchanged
func saveInvoiceStatus(tx *gorm.DB, invoice *invoicing.Invoice, previousVersion int) error {
	result := tx.Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ? AND status IN ?", invoice.ID, previousVersion,
			[]invoicing.InvoiceStatus{invoicing.InvoiceStatusActive, invoicing.InvoiceStatusPending, invoicing.InvoiceStatusPaid}).
		Updates(statusColumns(invoice))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ invoicing.PaymentRepository = (*GormPaymentRepository)(nil)
