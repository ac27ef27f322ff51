// Package handler holds the gin handlers of the invoicing API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/interfaces/http/dto"
	"github.com/optica/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler writes the response envelope shared by every handler
type BaseHandler struct{}

func (h *BaseHandler) reply(c *gin.Context, status int, data any) {
	c.JSON(status, dto.OK(data))
}

func (h *BaseHandler) replyPage(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.Paged(data, total, page, pageSize))
}

// fail records code for the access log, metrics and span before writing it
func (h *BaseHandler) fail(c *gin.Context, status int, code, message string) {
	middleware.SetErrorCode(c, code)
	c.JSON(status, dto.Failure(code, message, middleware.GetRequestID(c)))
}

// HandleError writes the response for an error returned by a service.
// Validation errors list their fields and domain errors map by code.
// Anything else is an infrastructure failure, reported as 500 with its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var (
		verr      *shared.ValidationError
		domainErr *shared.DomainError
	)
	switch {
	case err == nil:
	case errors.As(err, &verr):
		middleware.SetErrorCode(c, dto.ErrCodeValidation)
		c.JSON(http.StatusBadRequest, dto.Invalid(middleware.GetRequestID(c), verr))
	case errors.As(err, &domainErr):
		h.fail(c, dto.DomainErrorStatus(domainErr.Code), domainErr.Code, domainErr.Message)
	default:
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err))
		h.fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, err.Error())
	}
}

// actor returns the authenticated employee or writes a 401
func (h *BaseHandler) actor(c *gin.Context) (invoicingapp.Actor, bool) {
	a, ok := middleware.GetActor(c)
	if !ok {
		h.fail(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
	}
	return a, ok
}

// bindID parses the :id path parameter or writes a 400
func (h *BaseHandler) bindID(c *gin.Context) (int64, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.AbortInvalid(c, err)
		return 0, false
	}
	return req.ID, true
}
