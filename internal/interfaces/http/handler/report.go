package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/infrastructure/export"
	"github.com/optica/backend/internal/interfaces/http/middleware"
)

// DefaultExportLimit caps the rows of a spreadsheet export when none is configured
const DefaultExportLimit = 5000

// InvoiceExporter lists invoices for reports
type InvoiceExporter interface {
	ListForExport(ctx context.Context, filter invoicingapp.InvoiceListFilter, limit int) ([]invoicing.Invoice, error)
}

// ReportHandler serves invoice reports
type ReportHandler struct {
	BaseHandler
	exporter  InvoiceExporter
	limit     int
	precision int32
	now       func() time.Time
}

// NewReportHandler creates a new ReportHandler. limit <= 0 uses DefaultExportLimit.
func NewReportHandler(exporter InvoiceExporter, limit int, precision int32) *ReportHandler {
	if limit <= 0 {
		limit = DefaultExportLimit
	}
	return &ReportHandler{
		exporter:  exporter,
		limit:     limit,
		precision: precision,
		now:       time.Now,
	}
}

// ExportInvoices downloads the filtered invoice list as an XLSX workbook.
// Pagination parameters are ignored; at most limit rows are written.
// GET /api/v1/reportes/facturas.xlsx
func (h *ReportHandler) ExportInvoices(c *gin.Context) {
	var filter invoicingapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	invoices, err := h.exporter.ListForExport(c.Request.Context(), filter, h.limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteInvoices(&buf, invoices, export.Options{Precision: h.precision}); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(export.FileName(h.now())))
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
