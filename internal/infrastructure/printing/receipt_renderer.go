package printing

import (
	"context"
	"time"

	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// Company is the issuer block printed at the top of every receipt
type Company struct {
	Name        string
	RTN         string
	Address     string
	Phone       string
	Email       string
	CAI         string
	LegalFooter string
}

type receiptData struct {
	Doc     *invoicingapp.ReceiptDocument
	Company Company
	Compact bool
}

// ReceiptRenderer renders invoice receipts to PDF and stores them.
// It implements the application's ReceiptRenderer.
type ReceiptRenderer struct {
	pdf         PDFRenderer
	store       storage.FileStore
	engine      *TemplateEngine
	company     Company
	paperSize   PaperSize
	orientation Orientation
	timeout     time.Duration
	observer    RenderObserver
	logger      *zap.Logger
}

// RenderObserver is told how long each PDF render took and whether it succeeded
type RenderObserver interface {
	ObserveRenderDuration(ctx context.Context, d time.Duration, ok bool)
}

// ReceiptRendererOption configures a ReceiptRenderer
type ReceiptRendererOption func(*ReceiptRenderer)

// WithCompany sets the issuer data
func WithCompany(c Company) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		r.company = c
	}
}

// WithPaperSize sets the paper the receipt is printed on
func WithPaperSize(p PaperSize) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		if p.IsValid() {
			r.paperSize = p
		}
	}
}

// WithTemplateEngine replaces the default template engine
func WithTemplateEngine(e *TemplateEngine) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		if e != nil {
			r.engine = e
		}
	}
}

// WithRenderTimeout bounds a single PDF render
func WithRenderTimeout(d time.Duration) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		r.timeout = d
	}
}

// WithRenderObserver reports render timings to o
func WithRenderObserver(o RenderObserver) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		r.observer = o
	}
}

// WithReceiptLogger sets the logger
func WithReceiptLogger(l *zap.Logger) ReceiptRendererOption {
	return func(r *ReceiptRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReceiptRenderer creates a ReceiptRenderer printing with pdf and saving into store
func NewReceiptRenderer(pdf PDFRenderer, store storage.FileStore, opts ...ReceiptRendererOption) *ReceiptRenderer {
	r := &ReceiptRenderer{
		pdf:         pdf,
		store:       store,
		engine:      NewTemplateEngine(),
		paperSize:   PaperSizeA4,
		orientation: OrientationPortrait,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderHTML fills the receipt template
func (r *ReceiptRenderer) RenderHTML(ctx context.Context, doc *invoicingapp.ReceiptDocument) (string, error) {
	if doc == nil {
		return "", renderError(ErrInvalidDocument, "receipt document is nil", nil)
	}
	return r.engine.RenderString(ctx, "receipt", receiptTemplate, receiptData{
		Doc:     doc,
		Company: r.company,
		Compact: r.paperSize.IsReceipt(),
	})
}

// Render prints the receipt and stores it under doc.FileName
func (r *ReceiptRenderer) Render(ctx context.Context, doc *invoicingapp.ReceiptDocument) (string, error) {
	if doc == nil || doc.FileName == "" {
		return "", renderError(ErrInvalidDocument, "receipt file name is required", nil)
	}

	html, err := r.RenderHTML(ctx, doc)
	if err != nil {
		return "", err
	}

	margins := DefaultMargins()
	if r.paperSize.IsReceipt() {
		margins = ReceiptMargins()
	}
	started := time.Now()
	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:        html,
		PaperSize:   r.paperSize,
		Orientation: r.orientation,
		Margins:     margins,
		Title:       doc.DocumentType + " " + doc.Number,
		Timeout:     r.timeout,
	})
	if r.observer != nil {
		r.observer.ObserveRenderDuration(ctx, time.Since(started), err == nil)
	}
	if err != nil {
		return "", err
	}

	if err := r.store.Save(ctx, doc.FileName, result.PDFData, "application/pdf"); err != nil {
		return "", renderError(ErrStoreFailed, "failed to store receipt", err)
	}

	r.logger.Info("Receipt generated",
		zap.Int64("invoice_id", doc.InvoiceID),
		zap.String("file", doc.FileName),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return doc.FileName, nil
}

// Close releases the PDF renderer
func (r *ReceiptRenderer) Close() error {
	if r.pdf == nil {
		return nil
	}
	return r.pdf.Close()
}

var _ invoicingapp.ReceiptRenderer = (*ReceiptRenderer)(nil)
