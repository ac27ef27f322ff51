package logger

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog writes one "HTTP Request" entry per request, at warn for 4xx
// and error for 5xx. Before the handlers run it attaches a logger tagged
// with the request ID to the request context, where services and the gorm
// logger find it. Register it after the request ID middleware.
func AccessLog(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, reqLog := WithRequestID(c.Request.Context(), base, c.GetString("request_id"))
		reqLog = reqLog.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(WithContext(ctx, reqLog))

		c.Next()

		status := c.Writer.Status()
		ce := reqLog.Check(accessLevel(status), "HTTP Request")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		optional := map[string]string{
			"route":   c.FullPath(),
			"query":   c.Request.URL.RawQuery,
			"user_id": c.GetString("user_id"),
		}
		for _, key := range []string{"route", "query", "user_id"} {
			if v := optional[key]; v != "" {
				fields = append(fields, zap.String(key, v))
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	}
	return zapcore.InfoLevel
}

// Recovery turns a handler panic into a logged JSON 500 in the API error
// envelope. Broken client connections are detected by gin and only aborted.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		requestID := c.GetString("request_id")
		base.Error("Panic recovered",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stacktrace"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "INTERNAL_ERROR",
				"message":    "An unexpected error occurred",
				"request_id": requestID,
			},
		})
	})
}
