package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/interfaces/http/middleware"
)

// PaymentService is the part of the payment application service used over HTTP
type PaymentService interface {
	Register(ctx context.Context, actor invoicingapp.Actor, req invoicingapp.RegisterPaymentRequest) (*invoicingapp.PaymentResult, error)
	Void(ctx context.Context, id int64, req invoicingapp.VoidPaymentRequest) (*invoicingapp.PaymentResult, error)
	ListByInvoice(ctx context.Context, invoiceID int64) (*invoicingapp.InvoicePaymentsResponse, error)
}

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Register records a payment against an invoice.
// POST /api/v1/pagos
func (h *PaymentHandler) Register(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req invoicingapp.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return
	}

	result, err := h.paymentService.Register(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusCreated, result)
}

// Void cancels a payment and reopens the invoice balance.
// PATCH /api/v1/pagos/:id/anular
func (h *PaymentHandler) Void(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req invoicingapp.VoidPaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.AbortInvalid(c, err)
			return
		}
	}

	result, err := h.paymentService.Void(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusOK, result)
}

// ListByInvoice returns the payments of an invoice with its balance.
// GET /api/v1/facturas/:id/pagos
func (h *PaymentHandler) ListByInvoice(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.reply(c, http.StatusOK, payments)
}
