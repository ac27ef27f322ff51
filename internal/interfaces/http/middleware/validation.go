package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/interfaces/http/dto"
)

// SetupValidator installs the request rules on gin's binding validator so
// ShouldBind reports the same field names and messages as the services.
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		invoicingapp.RegisterValidations(v)
	}
}

// AbortInvalid answers a failed bind. Field errors become a 400 listing
// every field; a body cut off by BodyLimit becomes a 413.
func AbortInvalid(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortTooLarge(c)
		return
	}
	SetErrorCode(c, dto.ErrCodeValidation)
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.Invalid(GetRequestID(c), invoicingapp.ToValidationError(err)))
}
