package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig lists paths served without profiling labels
type ProfilingConfig struct {
	SkipPaths []string
}

// Profiling labels requests other than the health check
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(ProfilingConfig{SkipPaths: []string{"/health"}})
}

// ProfilingWithConfig runs the rest of the chain under Pyroscope labels for
// the resource ("facturas"), the route pattern and the method, so receipt
// rendering and XLSX export samples can be told apart. Unmatched requests
// get no labels, so raw paths never become label values.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := telemetry.HTTPRequestLabels(routeResource(route), route, c.Request.Method)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// routeResource returns the first literal segment of route after the
// "/api/vN" prefix: "/api/v1/facturas/:id/pagos" gives "facturas".
func routeResource(route string) string {
	for _, seg := range strings.Split(route, "/") {
		switch {
		case seg == "", seg == "api", isAPIVersion(seg):
		case seg[0] == ':' || seg[0] == '*':
		default:
			return seg
		}
	}
	return ""
}

func isAPIVersion(seg string) bool {
	digits, ok := strings.CutPrefix(strings.ToLower(seg), "v")
	if !ok || digits == "" {
		return false
	}
	return strings.Trim(digits, "0123456789") == ""
}
