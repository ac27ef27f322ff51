package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	invoicingapp "github.com/optica/backend/internal/application/invoicing"
	"github.com/optica/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidationRouter() *gin.Engine {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/factura-completa", func(c *gin.Context) {
		var req invoicingapp.CreateInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortInvalid(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return router
}

func detailFields(details []dto.ValidationDetail) []string {
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	return fields
}

func TestAbortInvalid_ListsFields(t *testing.T) {
	body := `{"customer_id":0,"employee_id":3,"payment_method_id":1}`
	req := httptest.NewRequest(http.MethodPost, "/factura-completa", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-val")
	w := httptest.NewRecorder()

	newValidationRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-val", resp.Error.RequestID)
	assert.ElementsMatch(t, []string{"customer_id", "lines"}, detailFields(resp.Error.Details))
}

func TestAbortInvalid_ManualLine(t *testing.T) {
	body := `{"customer_id":1,"employee_id":3,"payment_method_id":1,"lines":[{"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/factura-completa", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	newValidationRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t,
		[]string{"lines[0].description", "lines[0].unit_price"},
		detailFields(resp.Error.Details))
}

func TestAbortInvalid_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/factura-completa", strings.NewReader(`{"customer_id":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	newValidationRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "body", resp.Error.Details[0].Field)
}

func TestAbortInvalid_BodyTooLarge(t *testing.T) {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID(), BodyLimit(16))
	router.POST("/factura-completa", func(c *gin.Context) {
		var req invoicingapp.CreateInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortInvalid(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/factura-completa",
		strings.NewReader(`{"customer_id":1,"employee_id":3,"payment_method_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
}

func TestAbortInvalid_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Set(RequestIDKey, "req-1")

	AbortInvalid(c, errors.New("unexpected EOF"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, dto.ValidationMessage, resp.Error.Message)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "unexpected EOF", resp.Error.Details[0].Message)
	assert.True(t, c.IsAborted())
}
