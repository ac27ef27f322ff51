package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInvoiceRepository_Create(t *testing.T) {
	t.Run("persists header lines and discounts", func(t *testing.T) {
		db := newSQLiteDatabase(t)
		repo := NewGormInvoiceRepository(db.DB)
		ctx := context.Background()

		inv := scenarioInvoice(t)
		require.NoError(t, repo.Create(ctx, inv))

		assert.Equal(t, int64(1), inv.ID)
		assert.Equal(t, invoicing.FormatInvoiceNumber(inv.IssuedAt, 1), inv.Number)
		for _, l := range inv.Lines {
			assert.Positive(t, l.ID)
			assert.Equal(t, inv.ID, l.InvoiceID)
		}
		assert.Positive(t, inv.Discounts[0].ID)

		stored, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.Number, stored.Number)
		assert.Equal(t, invoicing.InvoiceStatusActive, stored.Status)
		assert.Equal(t, "250.00", stored.Subtotal.StringFixed(2))
		assert.Equal(t, "25.00", stored.DiscountTotal.StringFixed(2))
		assert.Equal(t, "225.00", stored.NetSubtotal.StringFixed(2))
		assert.Equal(t, "33.75", stored.TaxAmount.StringFixed(2))
		assert.Equal(t, "258.75", stored.Total.StringFixed(2))
		require.Len(t, stored.Lines, 2)
		assert.Equal(t, "Lente monofocal", stored.Lines[0].Description)
		assert.Equal(t, "200.00", stored.Lines[0].LineTotal.StringFixed(2))
		assert.Nil(t, stored.Lines[1].ProductID)
		require.Len(t, stored.Discounts, 1)
		assert.Equal(t, "25.00", stored.Discounts[0].Amount.StringFixed(2))
		assert.False(t, stored.HasReceipt())
	})

	t.Run("numbers follow the generated key", func(t *testing.T) {
		db := newSQLiteDatabase(t)
		repo := NewGormInvoiceRepository(db.DB)
		ctx := context.Background()

		first := scenarioInvoice(t)
		second := scenarioInvoice(t)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		assert.Equal(t, first.ID+1, second.ID)
		assert.NotEqual(t, first.Number, second.Number)
	})

	t.Run("rolls back the header when a line insert fails", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "facturas"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec(`UPDATE "facturas" SET "number"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "factura_detalles"`).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		inv := scenarioInvoice(t)
		err := repo.Create(context.Background(), inv)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert invoice lines")
		assert.Zero(t, inv.ID)
		assert.Empty(t, inv.Number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a discount insert fails", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "facturas"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
		mock.ExpectExec(`UPDATE "facturas" SET "number"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "factura_detalles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
		mock.ExpectQuery(`INSERT INTO "factura_descuentos"`).
			WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		inv := scenarioInvoice(t)
		err := repo.Create(context.Background(), inv)

		require.Error(t, err)
		assert.Zero(t, inv.ID)
		assert.Zero(t, inv.Lines[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing is stored after a rollback", func(t *testing.T) {
		db := newSQLiteDatabase(t)
		repo := NewGormInvoiceRepository(db.DB)
		ctx := context.Background()

		inv := scenarioInvoice(t)
		// the header insert succeeds, the line insert cannot
		require.NoError(t, db.DB.Migrator().DropTable(&models.InvoiceLineModel{}))

		require.Error(t, repo.Create(ctx, inv))

		var count int64
		require.NoError(t, db.DB.Model(&models.InvoiceModel{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
}

func TestGormInvoiceRepository_FindAll(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, scenarioInvoice(t)))
	}
	voided, err := repo.FindByID(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, voided.Void("error de digitacion", "supervisor"))
	require.NoError(t, repo.UpdateStatus(ctx, voided))

	t.Run("pages newest first", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "id", OrderDir: "desc"}}
		items, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, items, 2)
		assert.Equal(t, int64(3), items[0].ID)
		assert.Equal(t, int64(2), items[1].ID)
		assert.Empty(t, items[0].Lines)
	})

	t.Run("filters by status", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{
			Filter: shared.DefaultFilter(),
			Status: invoicing.InvoiceStatusVoided,
		}
		items, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].ID)
	})

	t.Run("searches by number", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.DefaultFilter()}
		filter.Search = "000003"
		items, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, int64(3), items[0].ID)
	})

	t.Run("unknown sort field falls back", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "total; DROP TABLE facturas", OrderDir: "asc"}}
		items, _, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("filters by customer", func(t *testing.T) {
		filter := invoicing.InvoiceFilter{Filter: shared.DefaultFilter(), CustomerID: 42}
		items, total, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})
}

func TestGormInvoiceRepository_FindAllDateRange(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	ctx := context.Background()

	for _, issued := range []time.Time{
		time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 3, 10, 16, 56, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	} {
		inv := scenarioInvoice(t)
		inv.IssuedAt = issued
		require.NoError(t, repo.Create(ctx, inv))
	}
	day := func(d int) *time.Time {
		midnight := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		return &midnight
	}

	tests := []struct {
		name     string
		from, to *time.Time
		want     []int64
	}{
		{"single day includes its afternoon", day(10), day(10), []int64{2}},
		{"to only", nil, day(10), []int64{1, 2}},
		{"from only", day(10), nil, []int64{2, 3}},
		{"range covers every day", day(9), day(11), []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := invoicing.InvoiceFilter{
				Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "id", OrderDir: "asc"},
				From:   tt.from,
				To:     tt.to,
			}
			items, total, err := repo.FindAll(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)
			ids := make([]int64, len(items))
			for i := range items {
				ids[i] = items[i].ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestDayAfter(t *testing.T) {
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		dayAfter(time.Date(2026, 2, 28, 15, 4, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		dayAfter(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestGormInvoiceRepository_UpdateStatus(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	ctx := context.Background()

	inv := scenarioInvoice(t)
	require.NoError(t, repo.Create(ctx, inv))

	t.Run("voids with optimistic lock", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Void("cliente desistio", "supervisor"))
		require.NoError(t, repo.UpdateStatus(ctx, loaded))

		stored, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.InvoiceStatusVoided, stored.Status)
		assert.Equal(t, "cliente desistio", stored.VoidReason)
		assert.Equal(t, "supervisor", stored.VoidedBy)
		assert.NotNil(t, stored.VoidedAt)
		assert.Equal(t, loaded.Version, stored.Version)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		stale := *inv
		stale.Status = invoicing.InvoiceStatusPaid
		stale.Version = inv.Version + 1 // expects the original version in storage
		err := repo.UpdateStatus(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		ghost := *inv
		ghost.ID = 404
		err := repo.UpdateStatus(ctx, &ghost)
		assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
	})
}

func TestGormInvoiceRepository_Receipts(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormInvoiceRepository(db.DB)
	ctx := context.Background()

	first := scenarioInvoice(t)
	second := scenarioInvoice(t)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	missing, err := repo.FindWithoutReceipt(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	afterFirst, err := repo.FindWithoutReceipt(ctx, first.ID, 10)
	require.NoError(t, err)
	require.Len(t, afterFirst, 1)
	assert.Equal(t, second.ID, afterFirst[0].ID)

	require.NoError(t, repo.SetReceiptFile(ctx, first.ID, invoicing.ReceiptFileName(first.ID)))

	stored, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, stored.HasReceipt())
	assert.Equal(t, "factura-1.pdf", *stored.ReceiptFile)
	assert.Equal(t, first.Version, stored.Version)

	missing, err = repo.FindWithoutReceipt(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, second.ID, missing[0].ID)

	limited, err := repo.FindWithoutReceipt(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	err = repo.SetReceiptFile(ctx, 404, "factura-404.pdf")
	assert.ErrorIs(t, err, invoicing.ErrInvoiceNotFound)
}
