// Package bootstrap wires the invoicing services from configuration.
// The API server and the operator CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/cache"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/infrastructure/persistence"
	"github.com/optica/backend/internal/infrastructure/printing"
	"github.com/optica/backend/internal/infrastructure/storage"
	"github.com/optica/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OpenDatabase connects with the zap backed gorm logger, installs query
// tracing when enabled and creates the schema on SQLite.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithLockWaitThreshold(cfg.Telemetry.DBLockWaitThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	)

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.DBTraceEnabled {
		tracing := telemetry.NewDBTracing(telemetry.DBTracingConfig{
			LogFullSQL: cfg.Telemetry.DBLogFullSQL,
			SlowQuery:  cfg.Telemetry.DBSlowQueryThresh,
			LockWait:   cfg.Telemetry.DBLockWaitThresh,
			DBSystem:   telemetry.DBSystemForDialect(db.DB.Dialector.Name()),
		}, log)
		if err := db.DB.Use(tracing); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register database tracing: %w", err)
		}
	}

	// PostgreSQL schemas are owned by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Options carries the optional collaborators of the invoicing services
type Options struct {
	// Metrics also observes receipt render durations
	Metrics *telemetry.InvoiceMetrics
	// DisableReceipts skips the PDF renderer even when one is configured
	DisableReceipts bool
}

// Invoicing holds the wired invoicing services and the resources they own
type Invoicing struct {
	Store       storage.FileStore
	Idempotency shared.IdempotencyStore
	Invoices    *invoicingapp.InvoiceService
	Payments    *invoicingapp.PaymentService

	closers []func() error
}

// NewInvoicing builds the receipt store, the PDF renderer, the idempotency
// store and both invoicing services on top of db.
func NewInvoicing(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger, opts Options) (*Invoicing, error) {
	out := &Invoicing{}

	store, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open receipt storage: %w", err)
	}
	out.Store = store

	var renderer invoicingapp.ReceiptRenderer
	if cfg.Receipt.Renderer != "none" && !opts.DisableReceipts {
		r, err := newReceiptRenderer(cfg, store, log, opts.Metrics)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, r.Close)
		renderer = r
	} else {
		log.Warn("Receipt rendering disabled, invoices are issued without a PDF")
	}

	idemOpts := []cache.Option{cache.WithLogger(log)}
	if cfg.App.Env == "production" {
		idemOpts = append(idemOpts, cache.RequireRedis())
	}
	idem, err := cache.OpenIdempotencyStore(ctx, cfg.Redis, idemOpts...)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("create idempotency store: %w", err)
	}
	out.Idempotency = idem
	out.closers = append(out.closers, idem.Close)

	var metrics invoicingapp.Metrics
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	calc := invoicing.NewCalculator(cfg.TaxPolicy())

	out.Invoices = invoicingapp.NewInvoiceService(invoicingapp.InvoiceServiceConfig{
		Invoices:       invoiceRepo,
		Payments:       paymentRepo,
		Catalog:        catalogRepo,
		Partners:       persistence.NewGormPartnerRepository(db.DB),
		Calculator:     calc,
		Renderer:       renderer,
		Receipts:       store,
		Idempotency:    idem,
		IdempotencyTTL: cfg.Invoice.IdempotencyTTL,
		Metrics:        metrics,
		Logger:         log,
	})
	out.Payments = invoicingapp.NewPaymentService(invoiceRepo, paymentRepo, catalogRepo, calc, metrics, log)

	return out, nil
}

func newReceiptRenderer(cfg *config.Config, store storage.FileStore, log *zap.Logger, metrics *telemetry.InvoiceMetrics) (*printing.ReceiptRenderer, error) {
	pdf, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		Timeout:   cfg.Receipt.Timeout,
		ExecPath:  cfg.Receipt.ChromePath,
		RemoteURL: cfg.Receipt.ChromeRemoteURL,
		NoSandbox: cfg.Receipt.NoSandbox,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("start PDF renderer: %w", err)
	}

	rendererOpts := []printing.ReceiptRendererOption{
		printing.WithCompany(printing.Company{
			Name:        cfg.Company.Name,
			RTN:         cfg.Company.RTN,
			Address:     cfg.Company.Address,
			Phone:       cfg.Company.Phone,
			Email:       cfg.Company.Email,
			CAI:         cfg.Company.CAI,
			LegalFooter: cfg.Company.LegalFooter,
		}),
		printing.WithTemplateEngine(printing.NewTemplateEngine(
			printing.WithCurrency(cfg.Invoice.CurrencySymbol, cfg.Invoice.CurrencyPrecision),
		)),
		printing.WithRenderTimeout(cfg.Receipt.Timeout),
		printing.WithReceiptLogger(log),
	}
	if paper, ok := printing.ParsePaperSize(cfg.Receipt.PaperSize); ok {
		rendererOpts = append(rendererOpts, printing.WithPaperSize(paper))
	}
	if metrics != nil {
		rendererOpts = append(rendererOpts, printing.WithRenderObserver(metrics))
	}

	return printing.NewReceiptRenderer(pdf, store, rendererOpts...), nil
}

// Close releases the renderer and the idempotency store
func (i *Invoicing) Close() error {
	var errs []error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
