package dto

import (
	"net/http"
	"strings"

	"github.com/optica/backend/internal/domain/invoicing"
)

// Error codes produced by the HTTP layer itself. Domain errors keep the
// code they were raised with (INVOICE_IMMUTABLE, PAYMENT_EXCEEDS_BALANCE...).

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
)

// Validation error codes
const (
	// ErrCodeValidation is used when a request fails its schema
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeIdempotencyPending  = "IDEMPOTENCY_IN_PROGRESS"
	ErrCodeInvalidState        = "INVALID_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Codes ending in _NOT_FOUND map to 404 without being listed.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidState:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeIdempotencyPending:  http.StatusConflict,

	invoicing.CodeInvoiceImmutable: http.StatusForbidden,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not known.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasSuffix(code, "_"+ErrCodeNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the HTTP status for a business rule violation.
// Unlisted domain codes are client errors.
func DomainErrorStatus(code string) int {
	if status := GetHTTPStatus(code); status != http.StatusInternalServerError || code == ErrCodeInternal {
		return status
	}
	return http.StatusBadRequest
}
