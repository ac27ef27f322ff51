package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context and header keys shared by the middleware chain
const (
	RequestIDKey         = "request_id"
	RequestIDHeader      = "X-Request-ID"
	IdempotencyKeyHeader = "Idempotency-Key"
	MaxRequestIDLength   = 128
)

// RequestID tags each request with an id, echoed in X-Request-ID and copied
// into logs and error bodies. A client id is kept when it is printable ASCII;
// anything else is replaced with a fresh UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := clientRequestID(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func clientRequestID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	for i := range len(id) {
		if id[i] < 0x21 || id[i] > 0x7e {
			return ""
		}
	}
	return id
}

// GetRequestID returns the id set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Timeout puts a deadline on the request context. Repositories and the PDF
// renderer give up when it passes; no response is written here.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
