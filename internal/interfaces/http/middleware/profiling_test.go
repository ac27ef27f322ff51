package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// profilingLabels serves target through Profiling and returns the pprof
// labels the handler saw
func profilingLabels(method, pattern, target string) (int, map[string]string) {
	labels := map[string]string{}
	engine := gin.New()
	engine.Use(Profiling())
	engine.Handle(method, pattern, func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w.Code, labels
}

func TestProfiling_SetsLabels(t *testing.T) {
	code, labels := profilingLabels(http.MethodPatch, "/api/v1/facturas/:id/anular", "/api/v1/facturas/9/anular")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{
		"controller": "facturas",
		"route":      "/api/v1/facturas/:id/anular",
		"method":     http.MethodPatch,
	}, labels)
}

func TestProfiling_SkipsHealth(t *testing.T) {
	code, labels := profilingLabels(http.MethodGet, "/health", "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, labels)
}

func TestProfiling_UnmatchedRoute(t *testing.T) {
	engine := gin.New()
	engine.Use(Profiling())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/facturas/9/nada", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouteResource(t *testing.T) {
	tests := map[string]string{
		"/api/v1/facturas/:id":           "facturas",
		"/api/v1/facturas/:id/pagos":     "facturas",
		"/api/v1/factura/:id/pdf":        "factura",
		"/api/v1/factura-completa":       "factura-completa",
		"/api/V2/pagos/:id/anular":       "pagos",
		"/api/v1/reportes/facturas.xlsx": "reportes",
		"/api/v1/ventas":                 "ventas",
		"/files/*path":                   "files",
		"/health":                        "health",
		"/api/v1":                        "",
		"":                               "",
	}

	for route, want := range tests {
		t.Run(route, func(t *testing.T) {
			assert.Equal(t, want, routeResource(route))
		})
	}
}
