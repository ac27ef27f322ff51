package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Check(t *testing.T) {
	tests := []struct {
		name         string
		db           Pinger
		wantStatus   int
		wantHealth   string
		wantDatabase string
	}{
		{"database reachable", stubPinger{}, http.StatusOK, "healthy", "connected"},
		{"database down", stubPinger{err: errors.New("dial tcp: connection refused")}, http.StatusServiceUnavailable, "unhealthy", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, "optica-facturacion")
			engine := newTestEngine(false)
			engine.GET("/health", h.Check)

			w := doRequest(engine, http.MethodGet, "/health", nil)
			require.Equal(t, tt.wantStatus, w.Code)

			var body struct {
				Success bool           `json:"success"`
				Data    HealthResponse `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus == http.StatusOK, body.Success)
			assert.Equal(t, tt.wantHealth, body.Data.Status)
			assert.Equal(t, tt.wantDatabase, body.Data.Database)
			assert.Equal(t, "optica-facturacion", body.Data.Name)
			assert.NotEmpty(t, body.Data.GoVersion)
		})
	}
}
