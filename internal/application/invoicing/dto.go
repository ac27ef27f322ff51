package invoicing

import (
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated principal performing an operation
type Actor struct {
	UserID   string
	Username string
}

// Name returns the best printable identifier of the actor
func (a Actor) Name() string {
	if a.Username != "" {
		return a.Username
	}
	return a.UserID
}

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to issue an invoice with its lines and discounts
type CreateInvoiceRequest struct {
	DocumentType    string                       `json:"document_type" binding:"omitempty,max=50"`
	CustomerID      int64                        `json:"customer_id" binding:"required,gt=0"`
	EmployeeID      int64                        `json:"employee_id" binding:"required,gt=0"`
	PaymentMethodID int64                        `json:"payment_method_id" binding:"required,gt=0"`
	Status          string                       `json:"status" binding:"omitempty,oneof=active pending"`
	Notes           string                       `json:"notes" binding:"max=500"`
	Lines           []CreateInvoiceLineInput     `json:"lines" binding:"required,min=1,dive"`
	Discounts       []CreateInvoiceDiscountInput `json:"discounts" binding:"omitempty,dive"`
}

// CreateInvoiceLineInput is one line of a create request.
// A line without product_id is a manual line and needs description and unit_price.
type CreateInvoiceLineInput struct {
	ProductID   *int64           `json:"product_id" binding:"omitempty,gt=0"`
	AttributeID *int64           `json:"attribute_id" binding:"omitempty,gt=0"`
	Description string           `json:"description" binding:"max=255"`
	Quantity    int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceDiscountInput is one discount of a create request.
// When amount is omitted the discount percentage is applied to the subtotal.
type CreateInvoiceDiscountInput struct {
	DiscountID int64            `json:"discount_id" binding:"required,gt=0"`
	Amount     *decimal.Decimal `json:"amount"`
}

// VoidInvoiceRequest represents a request to void an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Status     string     `form:"status" binding:"omitempty,oneof=active paid pending voided"`
	CustomerID int64      `form:"customer_id" binding:"omitempty,gt=0"`
	EmployeeID int64      `form:"employee_id" binding:"omitempty,gt=0"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string     `form:"order_by" binding:"omitempty,oneof=issued_at total id"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InvoiceResponse represents an invoice in API responses.
// Money is rendered as fixed point strings at the configured precision.
type InvoiceResponse struct {
	ID              int64                     `json:"id"`
	Number          string                    `json:"number"`
	IssuedAt        time.Time                 `json:"issued_at"`
	DocumentType    string                    `json:"document_type"`
	CustomerID      int64                     `json:"customer_id"`
	EmployeeID      int64                     `json:"employee_id"`
	PaymentMethodID int64                     `json:"payment_method_id"`
	Status          string                    `json:"status"`
	Subtotal        string                    `json:"subtotal"`
	DiscountTotal   string                    `json:"discount_total"`
	NetSubtotal     string                    `json:"net_subtotal"`
	TaxRate         string                    `json:"tax_rate"`
	TaxAmount       string                    `json:"tax_amount"`
	Total           string                    `json:"total"`
	Notes           string                    `json:"notes,omitempty"`
	ReceiptFile     *string                   `json:"receipt_file"`
	IssuedBy        string                    `json:"issued_by,omitempty"`
	PaidAt          *time.Time                `json:"paid_at,omitempty"`
	VoidedAt        *time.Time                `json:"voided_at,omitempty"`
	VoidReason      string                    `json:"void_reason,omitempty"`
	VoidedBy        string                    `json:"voided_by,omitempty"`
	Lines           []InvoiceLineResponse     `json:"lines,omitempty"`
	Discounts       []InvoiceDiscountResponse `json:"discounts,omitempty"`
	Payments        []PaymentResponse         `json:"payments,omitempty"`
	PaidAmount      *string                   `json:"paid_amount,omitempty"`
	Balance         *string                   `json:"balance,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	Version         int                       `json:"version"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	ID          int64  `json:"id"`
	ProductID   *int64 `json:"product_id,omitempty"`
	AttributeID *int64 `json:"attribute_id,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// InvoiceDiscountResponse represents an applied discount in API responses
type InvoiceDiscountResponse struct {
	ID         int64  `json:"id"`
	DiscountID int64  `json:"discount_id"`
	Name       string `json:"name,omitempty"`
	Amount     string `json:"amount"`
}

// CreateInvoiceResult is the outcome of an invoice creation
type CreateInvoiceResult struct {
	Invoice *InvoiceResponse
	// Replayed is true when an idempotency key matched an earlier request
	Replayed bool
	// ReceiptError holds the rendering failure message when no receipt was produced
	ReceiptError string
}

// ReceiptResponse reports a (re)generated receipt
type ReceiptResponse struct {
	InvoiceID   int64  `json:"invoice_id"`
	ReceiptFile string `json:"receipt_file"`
}

// RepairReport summarizes a bulk receipt regeneration run. LastID is the
// highest invoice scanned; the next page starts after it. Exhausted is set
// when no invoice past LastID is missing a receipt.
type RepairReport struct {
	Scanned     int              `json:"scanned"`
	Regenerated int              `json:"regenerated"`
	Failed      map[int64]string `json:"failed,omitempty"`
	LastID      int64            `json:"last_id"`
	Exhausted   bool             `json:"exhausted"`
}

// ==================== Payment DTOs ====================

// RegisterPaymentRequest represents a request to register a payment
type RegisterPaymentRequest struct {
	InvoiceID       int64           `json:"invoice_id" binding:"required,gt=0"`
	PaymentMethodID int64           `json:"payment_method_id" binding:"required,gt=0"`
	Amount          decimal.Decimal `json:"amount"`
	Notes           string          `json:"notes" binding:"max=500"`
}

// VoidPaymentRequest represents a request to void a payment
type VoidPaymentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              int64      `json:"id"`
	InvoiceID       int64      `json:"invoice_id"`
	PaymentMethodID int64      `json:"payment_method_id"`
	Amount          string     `json:"amount"`
	PaidAt          time.Time  `json:"paid_at"`
	Notes           string     `json:"notes,omitempty"`
	Status          string     `json:"status"`
	ReceivedBy      string     `json:"received_by,omitempty"`
	VoidedAt        *time.Time `json:"voided_at,omitempty"`
	VoidReason      string     `json:"void_reason,omitempty"`
}

// PaymentResult is returned after registering or voiding a payment
type PaymentResult struct {
	Payment          PaymentResponse `json:"payment"`
	RemainingBalance string          `json:"remaining_balance"`
	InvoiceStatus    string          `json:"invoice_status"`
}

// InvoicePaymentsResponse lists the payments of an invoice with its balance
type InvoicePaymentsResponse struct {
	InvoiceID     int64             `json:"invoice_id"`
	InvoiceStatus string            `json:"invoice_status"`
	Total         string            `json:"total"`
	PaidAmount    string            `json:"paid_amount"`
	Balance       string            `json:"balance"`
	Payments      []PaymentResponse `json:"payments"`
}

// ==================== Mapping ====================

// moneyFormatter renders amounts at a fixed precision
type moneyFormatter int32

func (f moneyFormatter) format(d decimal.Decimal) string {
	return d.StringFixed(int32(f))
}

// ToInvoiceResponse converts a domain invoice to a response DTO
func ToInvoiceResponse(inv *invoicing.Invoice, precision int32) InvoiceResponse {
	m := moneyFormatter(precision)

	lines := make([]InvoiceLineResponse, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = InvoiceLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			AttributeID: l.AttributeID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   m.format(l.UnitPrice),
			LineTotal:   m.format(l.LineTotal),
		}
	}

	discounts := make([]InvoiceDiscountResponse, len(inv.Discounts))
	for i, d := range inv.Discounts {
		discounts[i] = InvoiceDiscountResponse{
			ID:         d.ID,
			DiscountID: d.DiscountID,
			Name:       d.Name,
			Amount:     m.format(d.Amount),
		}
	}

	return InvoiceResponse{
		ID:              inv.ID,
		Number:          inv.Number,
		IssuedAt:        inv.IssuedAt,
		DocumentType:    inv.DocumentType,
		CustomerID:      inv.CustomerID,
		EmployeeID:      inv.EmployeeID,
		PaymentMethodID: inv.PaymentMethodID,
		Status:          string(inv.Status),
		Subtotal:        m.format(inv.Subtotal),
		DiscountTotal:   m.format(inv.DiscountTotal),
		NetSubtotal:     m.format(inv.NetSubtotal),
		TaxRate:         inv.TaxRate.String(),
		TaxAmount:       m.format(inv.TaxAmount),
		Total:           m.format(inv.Total),
		Notes:           inv.Notes,
		ReceiptFile:     inv.ReceiptFile,
		IssuedBy:        inv.IssuedBy,
		PaidAt:          inv.PaidAt,
		VoidedAt:        inv.VoidedAt,
		VoidReason:      inv.VoidReason,
		VoidedBy:        inv.VoidedBy,
		Lines:           lines,
		Discounts:       discounts,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.Version,
	}
}

// ToPaymentResponse converts a domain payment to a response DTO
func ToPaymentResponse(p *invoicing.Payment, precision int32) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		PaymentMethodID: p.PaymentMethodID,
		Amount:          moneyFormatter(precision).format(p.Amount),
		PaidAt:          p.PaidAt,
		Notes:           p.Notes,
		Status:          string(p.Status),
		ReceivedBy:      p.ReceivedBy,
		VoidedAt:        p.VoidedAt,
		VoidReason:      p.VoidReason,
	}
}

// ToPaymentResponses converts a list of payments
func ToPaymentResponses(payments []invoicing.Payment, precision int32) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i], precision)
	}
	return out
}
