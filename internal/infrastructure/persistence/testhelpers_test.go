package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/optica/backend/internal/domain/catalog"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newSQLiteDatabase opens an in-memory SQLite database with the full schema
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	seedReferenceData(t, db.DB)
	return db
}

// newMockGormDB creates a GORM DB over sqlmock using the PostgreSQL dialector
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func seedReferenceData(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&models.CustomerModel{Name: "Maria Lopez", RTN: "08011990123456", Phone: "9999-0000"}).Error)
	require.NoError(t, db.Create(&models.EmployeeModel{Name: "Carlos Mejia", Active: true}).Error)
	require.NoError(t, db.Create(&models.ProductModel{
		Code: "LEN-001", Name: "Lente monofocal", Price: decimal.NewFromInt(100), Status: catalog.ProductStatusActive,
	}).Error)
	require.NoError(t, db.Create(&models.ProductAttributeModel{ProductID: 1, Name: "Antirreflejo", Price: decimal.NewFromInt(150)}).Error)
	require.NoError(t, db.Create(&models.DiscountModel{Name: "Tercera edad", Percentage: decimal.NewFromInt(10), Active: true}).Error)
	require.NoError(t, db.Create(&models.PaymentMethodModel{Name: "Efectivo", Active: true}).Error)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// scenarioInvoice builds the reference invoice: 2 x 100 + 1 x 50, less a 25 discount
func scenarioInvoice(t *testing.T) *invoicing.Invoice {
	t.Helper()

	frame, err := invoicing.NewCatalogLine(1, nil, "Lente monofocal", 2, money("100"))
	require.NoError(t, err)
	fitting, err := invoicing.NewManualLine("Ajuste de aro", 1, money("50"))
	require.NoError(t, err)
	discount, err := invoicing.NewInvoiceDiscount(1, "Tercera edad", money("25"))
	require.NoError(t, err)

	inv, err := invoicing.NewInvoice(invoicing.IssueInvoiceInput{
		CustomerID:      1,
		EmployeeID:      1,
		PaymentMethodID: 1,
		IssuedBy:        "cajero",
		Lines:           []invoicing.InvoiceLine{frame, fitting},
		Discounts:       []invoicing.InvoiceDiscount{discount},
	}, invoicing.NewCalculator(invoicing.DefaultTaxPolicy()))
	require.NoError(t, err)
	return inv
}
