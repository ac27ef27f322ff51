package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig lists the origins allowed to call the API from a browser
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows no origin. The point-of-sale frontend origin is
// added from configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"Accept", "Authorization", "Cache-Control", "Content-Type", "Origin", RequestIDHeader, IdempotencyKeyHeader},
		ExposeHeaders:    []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS applies DefaultCORSConfig
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	credentials bool
	headers     [][2]string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{origins: make(map[string]bool, len(cfg.AllowOrigins))}
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[origin] = true
	}
	// browsers reject credentials together with a wildcard origin
	p.credentials = cfg.AllowCredentials && !p.anyOrigin

	add := func(name string, values []string) {
		if len(values) > 0 {
			p.headers = append(p.headers, [2]string{name, strings.Join(values, ", ")})
		}
	}
	add("Access-Control-Allow-Methods", cfg.AllowMethods)
	add("Access-Control-Allow-Headers", cfg.AllowHeaders)
	add("Access-Control-Expose-Headers", cfg.ExposeHeaders)
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		p.headers = append(p.headers, [2]string{"Access-Control-Max-Age", strconv.Itoa(secs)})
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" when
// the origin is not allowed
func (p *corsPolicy) allow(origin string) string {
	switch {
	case origin == "":
		return ""
	case p.anyOrigin:
		return "*"
	case p.origins[origin]:
		return origin
	}
	return ""
}

// CORSWithConfig answers cross-origin requests from the configured origins.
// OPTIONS requests always stop here with 204; disallowed origins just get no
// CORS headers.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if !policy.anyOrigin {
			h.Add("Vary", "Origin")
		}
		if allowed := policy.allow(c.GetHeader("Origin")); allowed != "" {
			h.Set("Access-Control-Allow-Origin", allowed)
			if policy.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			for _, kv := range policy.headers {
				h.Set(kv[0], kv[1])
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SecurityConfig controls the hardening headers sent with every response
type SecurityConfig struct {
	HSTSEnabled           bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool

	CSPDirective               string
	PermissionsPolicyDirective string
}

// DefaultSecurityConfig suits a JSON and PDF API. HSTS stays off until the
// service is served over HTTPS.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:                 int((365 * 24 * time.Hour).Seconds()),
		HSTSIncludeSubdomains:      true,
		CSPDirective:               "default-src 'none'; frame-ancestors 'none'",
		PermissionsPolicyDirective: "camera=(), geolocation=(), microphone=(), payment=(), usb=()",
	}
}

func (cfg SecurityConfig) headers() [][2]string {
	headers := [][2]string{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
	}
	if cfg.CSPDirective != "" {
		headers = append(headers, [2]string{"Content-Security-Policy", cfg.CSPDirective})
	}
	if cfg.PermissionsPolicyDirective != "" {
		headers = append(headers, [2]string{"Permissions-Policy", cfg.PermissionsPolicyDirective})
	}
	if cfg.HSTSEnabled {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		headers = append(headers, [2]string{"Strict-Transport-Security", hsts})
	}
	return headers
}

// Secure applies DefaultSecurityConfig
func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

// SecureWithConfig sets the security headers of cfg before the handler runs
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	headers := cfg.headers()
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range headers {
			h.Set(kv[0], kv[1])
		}
		c.Next()
	}
}
