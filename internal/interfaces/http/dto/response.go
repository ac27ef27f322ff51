package dto

import (
	"github.com/optica/backend/internal/domain/shared"
)

// ValidationMessage heads every 400 validation body
const ValidationMessage = "Request validation failed"

// Response is the envelope of every JSON body. Exactly one of Data and Error
// is set; Meta accompanies paged lists.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one failing request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewMeta describes page of a list of total items. Out of range page and
// size fall back to the first page of the default size.
func NewMeta(total int64, page, pageSize int) *Meta {
	if pageSize <= 0 {
		pageSize = shared.DefaultPageSize
	}
	size := int64(pageSize)
	return &Meta{
		Total:      total,
		Page:       max(page, 1),
		PageSize:   pageSize,
		TotalPages: int((total + size - 1) / size),
	}
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

func Paged(data any, total int64, page, pageSize int) Response {
	return Response{Success: true, Data: data, Meta: NewMeta(total, page, pageSize)}
}

// Failure is an error body. requestID may be empty.
func Failure(code, message, requestID string) Response {
	return Response{Error: &ErrorInfo{Code: code, Message: message, RequestID: requestID}}
}

// Invalid lists every field of verr in a VALIDATION_ERROR body
func Invalid(requestID string, verr *shared.ValidationError) Response {
	resp := Failure(ErrCodeValidation, ValidationMessage, requestID)
	if verr != nil && len(verr.Fields) > 0 {
		resp.Error.Details = make([]ValidationDetail, len(verr.Fields))
		for i, f := range verr.Fields {
			resp.Error.Details[i] = ValidationDetail{Field: f.Field, Message: f.Message}
		}
	}
	return resp
}

// IDRequest binds the numeric :id path parameter
type IDRequest struct {
	ID int64 `uri:"id" json:"id" binding:"required,gt=0"`
}
