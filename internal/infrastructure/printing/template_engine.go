package printing

import (
	"bytes"
	"context"
	"html/template"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

// TemplateEngine executes receipt layouts with the money, date and text
// helpers they call. Parsed templates are cached by name.
type TemplateEngine struct {
	symbol   string
	digits   int32
	location *time.Location
	funcs    template.FuncMap

	mu     sync.RWMutex
	parsed map[string]parsedTemplate
}

type parsedTemplate struct {
	source string
	tmpl   *template.Template
}

type TemplateEngineOption func(*TemplateEngine)

// WithCurrency prints amounts with symbol and digits decimals. An empty symbol
// prints bare numbers.
func WithCurrency(symbol string, digits int32) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.symbol, e.digits = symbol, digits
	}
}

// WithLocation prints dates in loc. A nil loc keeps the local zone.
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// NewTemplateEngine prints lempiras with two decimals in the local zone
func NewTemplateEngine(opts ...TemplateEngineOption) *TemplateEngine {
	e := &TemplateEngine{
		symbol:   "L",
		digits:   2,
		location: time.Local,
		parsed:   make(map[string]parsedTemplate),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.funcs = template.FuncMap{
		"formatMoney":    e.formatMoney,
		"formatMoneyRaw": e.formatMoneyRaw,
		"amountInWords":  amountInWords,
		"formatDate":     e.formatDate,
		"formatDateTime": e.formatDateTime,
		"formatPercent":  formatPercent,
		"truncate":       truncate,
		"upper":          strings.ToUpper,
		"title":          titleCase,
		"trim":           strings.TrimSpace,
		"default":        defaultFunc,
		"statusText":     statusText,
	}
	return e
}

// RenderString executes source as the template called name. A changed source
// under a known name is parsed again.
func (e *TemplateEngine) RenderString(_ context.Context, name, source string, data any) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", renderError(ErrInvalidDocument, "template content is empty", nil)
	}
	tmpl, err := e.lookup(name, source)
	if err != nil {
		return "", renderError(ErrInvalidDocument, "failed to parse template "+name, err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return "", renderError(ErrRenderFailed, "failed to execute template "+name, err)
	}
	return out.String(), nil
}

func (e *TemplateEngine) lookup(name, source string) (*template.Template, error) {
	e.mu.RLock()
	p, ok := e.parsed[name]
	e.mu.RUnlock()
	if ok && p.source == source {
		return p.tmpl, nil
	}

	tmpl, err := template.New(name).Funcs(e.funcs).Parse(source)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.parsed[name] = parsedTemplate{source: source, tmpl: tmpl}
	e.mu.Unlock()
	return tmpl, nil
}

// FuncMap returns a copy of the helpers available to templates
func (e *TemplateEngine) FuncMap() template.FuncMap {
	return maps.Clone(e.funcs)
}

// formatMoney renders 1234.5 as "L 1,234.50"
func (e *TemplateEngine) formatMoney(v decimal.Decimal) string {
	if e.symbol == "" {
		return e.formatMoneyRaw(v)
	}
	return e.symbol + " " + e.formatMoneyRaw(v)
}

// formatMoneyRaw renders 1234.5 as "1,234.50"
func (e *TemplateEngine) formatMoneyRaw(v decimal.Decimal) string {
	fixed := v.Abs().StringFixed(e.digits)
	whole, frac, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	if v.Round(e.digits).IsNegative() {
		b.WriteByte('-')
	}
	lead := len(whole) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(whole[:lead])
	for i := lead; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func (e *TemplateEngine) formatDate(t time.Time) string {
	return e.inZone(t, dateLayout)
}

func (e *TemplateEngine) formatDateTime(t time.Time) string {
	return e.inZone(t, dateTimeLayout)
}

func (e *TemplateEngine) inZone(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.location).Format(layout)
}

// titleCase applies Spanish casing, so "CARLOS MEJÍA" reads "Carlos Mejía".
// A Caser keeps state between calls and is not shared.
func titleCase(s string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(s))
}

var hundred = decimal.NewFromInt(100)

// formatPercent renders the rate 0.15 as "15%"
func formatPercent(rate decimal.Decimal) string {
	return rate.Mul(hundred).Round(2).String() + "%"
}

// truncate cuts s to n runes, the last three being "..." when room allows
func truncate(s string, n int) string {
	runes := []rune(s)
	switch {
	case len(runes) <= n:
		return s
	case n <= 3:
		return string(runes[:max(n, 0)])
	}
	return string(runes[:n-3]) + "..."
}

func defaultFunc(fallback, val string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

var statusLabels = map[string]string{
	"active":  "Vigente",
	"pending": "Pendiente de pago",
	"paid":    "Pagada",
	"voided":  "Anulada",
}

// statusText is the label printed for an invoice status
func statusText(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}
