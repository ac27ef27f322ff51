package printing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_FuncMap(t *testing.T) {
	funcMap := NewTemplateEngine().FuncMap()

	for _, name := range []string{"formatMoney", "formatDate", "amountInWords", "formatPercent", "statusText"} {
		assert.NotNil(t, funcMap[name], name)
	}

	delete(funcMap, "formatMoney")
	assert.NotNil(t, NewTemplateEngine().FuncMap()["formatMoney"])
}

func TestTemplateEngine_RenderString(t *testing.T) {
	engine := NewTemplateEngine()
	ctx := context.Background()

	t.Run("escapes data", func(t *testing.T) {
		html, err := engine.RenderString(ctx, "t", `<p>{{.Name}}</p>`, map[string]string{"Name": "<b>Ana</b>"})
		require.NoError(t, err)
		assert.Equal(t, "<p>&lt;b&gt;Ana&lt;/b&gt;</p>", html)
	})

	t.Run("empty template", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "", nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("parse error", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "{{.Name", nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("changed source under the same name", func(t *testing.T) {
		first, err := engine.RenderString(ctx, "same", `<b>{{.}}</b>`, "uno")
		require.NoError(t, err)
		second, err := engine.RenderString(ctx, "same", `<i>{{.}}</i>`, "dos")
		require.NoError(t, err)
		assert.Equal(t, "<b>uno</b>", first)
		assert.Equal(t, "<i>dos</i>", second)
	})

	t.Run("execution error", func(t *testing.T) {
		_, err := engine.RenderString(ctx, "t", "{{.Missing.Field}}", struct{ Name string }{})
		assert.ErrorIs(t, err, ErrRenderFailed)
	})
}

func TestFormatMoney(t *testing.T) {
	engine := NewTemplateEngine()

	tests := []struct {
		in   string
		want string
	}{
		{"0", "L 0.00"},
		{"258.75", "L 258.75"},
		{"1234.5", "L 1,234.50"},
		{"1234567.891", "L 1,234,567.89"},
		{"-33.75", "L -33.75"},
		{"-0.001", "L 0.00"},
		{"999999.995", "L 1,000,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.formatMoney(decimal.RequireFromString(tt.in)))
		})
	}

	t.Run("custom currency", func(t *testing.T) {
		usd := NewTemplateEngine(WithCurrency("$", 0))
		assert.Equal(t, "$ 1,235", usd.formatMoney(decimal.RequireFromString("1234.5")))
		noSymbol := NewTemplateEngine(WithCurrency("", 2))
		assert.Equal(t, "10.00", noSymbol.formatMoney(decimal.NewFromInt(10)))
	})
}

func TestFormatDates(t *testing.T) {
	engine := NewTemplateEngine(WithLocation(time.UTC))
	ts := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "05/03/2026", engine.formatDate(ts))
	assert.Equal(t, "05/03/2026 14:30", engine.formatDateTime(ts))
	assert.Empty(t, engine.formatDate(time.Time{}))
	assert.Empty(t, engine.formatDateTime(time.Time{}))
}

func TestFormattingHelpers(t *testing.T) {
	assert.Equal(t, "15%", formatPercent(decimal.RequireFromString("0.15")))
	assert.Equal(t, "12.5%", formatPercent(decimal.RequireFromString("0.125")))

	assert.Equal(t, "Lente", truncate("Lente", 10))
	assert.Equal(t, "Lente a...", truncate("Lente antirreflejo", 10))
	assert.Equal(t, "Le", truncate("Lente", 2))

	assert.Equal(t, "Carlos Mejía", titleCase("CARLOS MEJÍA"))
	assert.Equal(t, "N/D", defaultFunc("N/D", "  "))
	assert.Equal(t, "0801", defaultFunc("N/D", "0801"))

	assert.Equal(t, "Anulada", statusText("voided"))
	assert.Equal(t, "Pagada", statusText("paid"))
	assert.Equal(t, "unknown", statusText("unknown"))
}

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "CERO LEMPIRAS CON 00/100"},
		{"1", "UN LEMPIRA CON 00/100"},
		{"15.5", "QUINCE LEMPIRAS CON 50/100"},
		{"100", "CIEN LEMPIRAS CON 00/100"},
		{"258.75", "DOSCIENTOS CINCUENTA Y OCHO LEMPIRAS CON 75/100"},
		{"1000", "MIL LEMPIRAS CON 00/100"},
		{"21500.10", "VEINTIUN MIL QUINIENTOS LEMPIRAS CON 10/100"},
		{"2000000", "DOS MILLONES LEMPIRAS CON 00/100"},
		{"1000101", "UN MILLON CIENTO UNO LEMPIRAS CON 00/100"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, amountInWords(decimal.RequireFromString(tt.in)))
		})
	}
}
