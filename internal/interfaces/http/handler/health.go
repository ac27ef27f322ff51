package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping() error
}

// HealthHandler serves the liveness probe
type HealthHandler struct {
	BaseHandler
	db        Pinger
	name      string
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, name string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		name:      name,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Name      string `json:"name"`
	Database  string `json:"database"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Check pings the database. An unreachable database answers 503.
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Name:      h.name,
		Database:  "connected",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
			return
		}
	}
	h.reply(c, http.StatusOK, resp)
}
