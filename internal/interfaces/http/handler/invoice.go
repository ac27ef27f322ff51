package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/interfaces/http/middleware"
)

// ReplayedHeader is set on responses served from an idempotency record
const ReplayedHeader = "Idempotent-Replayed"

// InvoiceService is the part of the invoice application service used over HTTP
type InvoiceService interface {
	Create(ctx context.Context, actor invoicingapp.Actor, req invoicingapp.CreateInvoiceRequest, idempotencyKey string) (*invoicingapp.CreateInvoiceResult, error)
	GetByID(ctx context.Context, id int64) (*invoicingapp.InvoiceResponse, error)
	List(ctx context.Context, filter invoicingapp.InvoiceListFilter) ([]invoicingapp.InvoiceResponse, int64, error)
	Void(ctx context.Context, actor invoicingapp.Actor, id int64, req invoicingapp.VoidInvoiceRequest) (*invoicingapp.InvoiceResponse, error)
	Amend(ctx context.Context, id int64) error
	RegenerateReceipt(ctx context.Context, id int64) (*invoicingapp.ReceiptResponse, error)
	OpenReceipt(ctx context.Context, id int64) (io.ReadCloser, string, error)
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// CreatedInvoiceResponse is the invoice returned by Create. ReceiptError is
// set when the invoice was stored but its receipt could not be rendered.
type CreatedInvoiceResponse struct {
	*invoicingapp.InvoiceResponse
	ReceiptError string `json:"receipt_error,omitempty"`
}

// Create issues an invoice with its lines and discounts.
// POST /api/v1/factura-completa
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req invoicingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	result, err := h.invoiceService.Create(c.Request.Context(), actor, req, c.GetHeader(middleware.IdempotencyKeyHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := CreatedInvoiceResponse{InvoiceResponse: result.Invoice, ReceiptError: result.ReceiptError}
	if result.Replayed {
		c.Header(ReplayedHeader, "true")
		h.reply(c, http.StatusOK, resp)
		return
	}
	h.reply(c, http.StatusCreated, resp)
}

// List returns a page of invoices.
// GET /api/v1/facturas
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter invoicingapp.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.replyPage(c, invoices, total, filter.Page, filter.PageSize)
}

// Get returns an invoice with its lines, discounts and payments.
// GET /api/v1/facturas/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	inv, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusOK, inv)
}

// Update rejects edits of issued invoices.
// PUT /api/v1/facturas/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	err := h.invoiceService.Amend(c.Request.Context(), id)
	if err == nil {
		err = invoicing.ErrInvoiceImmutable
	}
	h.HandleError(c, err)
}

// Void cancels an invoice.
// PATCH /api/v1/facturas/:id/anular
func (h *InvoiceHandler) Void(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	// the reason is optional, so an empty body is accepted
	var req invoicingapp.VoidInvoiceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortInvalid(c, err)
			return
		}
	}

	inv, err := h.invoiceService.Void(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusOK, inv)
}

// RegenerateReceipt renders the receipt PDF of an invoice again.
// POST /api/v1/facturas/:id/pdf
func (h *InvoiceHandler) RegenerateReceipt(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	receipt, err := h.invoiceService.RegenerateReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusOK, receipt)
}

// DownloadReceipt streams the receipt PDF of an invoice.
// GET /api/v1/factura/:id/pdf
func (h *InvoiceHandler) DownloadReceipt(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	rc, name, err := h.invoiceService.OpenReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": "inline; filename=" + strconv.Quote(name),
	})
}
