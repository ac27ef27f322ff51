package invoicing

import "github.com/optica/backend/internal/domain/shared"

// Error codes raised by the invoicing domain
const (
	CodeInvoiceNotFound         = "INVOICE_NOT_FOUND"
	CodePaymentNotFound         = "PAYMENT_NOT_FOUND"
	CodeInvoiceImmutable        = "INVOICE_IMMUTABLE"
	CodeInvoiceAlreadyVoided    = "INVOICE_ALREADY_VOIDED"
	CodeInvoiceAlreadyPaid      = "INVOICE_ALREADY_PAID"
	CodeInvoiceVoided           = "INVOICE_VOIDED"
	CodePaymentAlreadyVoided    = "PAYMENT_ALREADY_VOIDED"
	CodePaymentExceedsBalance   = "PAYMENT_EXCEEDS_BALANCE"
	CodeDiscountExceedsSubtotal = "DISCOUNT_EXCEEDS_SUBTOTAL"
	CodeNoLines                 = "NO_LINES"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidPrice            = "INVALID_PRICE"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeInvalidDescription      = "INVALID_DESCRIPTION"
	CodeInvalidReference        = "INVALID_REFERENCE"
	CodeInvalidStatus           = "INVALID_STATUS"
)

var (
	ErrInvoiceNotFound      = shared.NewDomainError(CodeInvoiceNotFound, "Invoice not found")
	ErrPaymentNotFound      = shared.NewDomainError(CodePaymentNotFound, "Payment not found")
	ErrInvoiceImmutable     = shared.NewDomainError(CodeInvoiceImmutable, "Issued invoices cannot be edited; void the invoice and issue a new one")
	ErrInvoiceAlreadyVoided = shared.NewDomainError(CodeInvoiceAlreadyVoided, "Invoice is already voided")
	ErrInvoiceAlreadyPaid   = shared.NewDomainError(CodeInvoiceAlreadyPaid, "Invoice is already paid")
	ErrInvoiceVoided        = shared.NewDomainError(CodeInvoiceVoided, "Cannot register payments on a voided invoice")
	ErrPaymentAlreadyVoided = shared.NewDomainError(CodePaymentAlreadyVoided, "Payment is already voided")
	ErrNoLines              = shared.NewDomainError(CodeNoLines, "Invoice must have at least one line")
)
