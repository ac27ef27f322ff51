package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/optica/backend/internal/domain/shared"
	"github.com/optica/backend/internal/infrastructure/auth"
	"github.com/optica/backend/internal/interfaces/http/dto"
	"github.com/optica/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// authenticate simulates the JWT middleware for employee 7
func authenticate(c *gin.Context) {
	claims := &auth.Claims{EmployeeID: 7, Username: "cmejia"}
	c.Set(middleware.JWTClaimsKey, claims)
	c.Set(middleware.JWTUserIDKey, claims.UserID())
	c.Set(middleware.JWTUsernameKey, claims.Username)
	c.Next()
}

func newTestEngine(authenticated bool) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	if authenticated {
		engine.Use(authenticate)
	}
	return engine
}

func doRequest(engine *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData unmarshals the data field of the envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestHandleError(t *testing.T) {
	verr := shared.NewValidationError()
	verr.Add("amount", "Must be greater than 0")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation error",
			err:        verr,
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name:       "immutable invoice",
			err:        invoicing.ErrInvoiceImmutable,
			wantStatus: http.StatusForbidden,
			wantCode:   invoicing.CodeInvoiceImmutable,
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("load invoice: %w", invoicing.ErrInvoiceNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   invoicing.CodeInvoiceNotFound,
		},
		{
			name:       "business rule",
			err:        invoicing.ErrInvoiceAlreadyVoided,
			wantStatus: http.StatusBadRequest,
			wantCode:   invoicing.CodeInvoiceAlreadyVoided,
		},
		{
			name:       "infrastructure failure keeps message",
			err:        errors.New("insert invoice_lines: foreign key violation"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
			wantMsg:    "insert invoice_lines: foreign key violation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			engine := newTestEngine(false)
			engine.GET("/test", func(c *gin.Context) {
				h.HandleError(c, tt.err)
			})

			w := doRequest(engine, http.MethodGet, "/test", nil, middleware.RequestIDHeader, "req-err")

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-err", resp.Error.RequestID)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error.Message)
			}
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	verr := shared.NewValidationError()
	verr.Add("lines", "This field is required")
	verr.Add("customer_id", "This field is required")

	h := &BaseHandler{}
	engine := newTestEngine(false)
	engine.GET("/test", func(c *gin.Context) {
		h.HandleError(c, fmt.Errorf("create: %w", verr))
	})

	w := doRequest(engine, http.MethodGet, "/test", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "lines", resp.Error.Details[0].Field)
	assert.Equal(t, "customer_id", resp.Error.Details[1].Field)
}

func TestHandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	engine := newTestEngine(false)
	engine.GET("/test", func(c *gin.Context) {
		h.HandleError(c, nil)
		c.Status(http.StatusNoContent)
	})

	w := doRequest(engine, http.MethodGet, "/test", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBindID(t *testing.T) {
	h := &BaseHandler{}
	engine := newTestEngine(false)
	engine.GET("/items/:id", func(c *gin.Context) {
		id, ok := h.bindID(c)
		if !ok {
			return
		}
		c.String(http.StatusOK, fmt.Sprint(id))
	})

	w := doRequest(engine, http.MethodGet, "/items/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	for _, bad := range []string{"/items/0", "/items/-3", "/items/abc"} {
		w := doRequest(engine, http.MethodGet, bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	}
}

func TestActor_Unauthenticated(t *testing.T) {
	h := &BaseHandler{}
	engine := newTestEngine(false)
	engine.GET("/test", func(c *gin.Context) {
		if _, ok := h.actor(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	w := doRequest(engine, http.MethodGet, "/test", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)
}
