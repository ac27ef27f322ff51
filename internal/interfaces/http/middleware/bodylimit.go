package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects declared bodies over maxBytes up front and caps the
// rest while they are read. Zero or less disables it.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch {
		case maxBytes <= 0:
		case c.Request.ContentLength > maxBytes:
			abortTooLarge(c)
			return
		default:
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func abortTooLarge(c *gin.Context) {
	SetErrorCode(c, dto.ErrCodeRequestTooLarge)
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
		dto.Failure(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", GetRequestID(c)))
}
