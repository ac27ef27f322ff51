package config

import (
	"net/http"
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
)

// defaults lists every configuration key. Keys without a sensible default
// (secrets, S3 credentials) are registered with their zero value.
var defaults = map[string]any{
	"app.name": "optica-backend",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "optica",
	"database.sslmode":            "disable",
	"database.path":               "optica.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret":                  "",
	"jwt.issuer":                  "optica-backend",
	"jwt.access_token_expiration": 8 * time.Hour,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    time.Minute,
	"http.idle_timeout":     time.Minute,
	"http.request_timeout":  45 * time.Second,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    int64(1 << 20),
	// no cross-origin access until origins are configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"invoice.tax_rate":           invoicing.DefaultTaxRate.InexactFloat64(),
	"invoice.currency_precision": invoicing.DefaultCurrencyPrecision,
	"invoice.currency_symbol":    "L",
	"invoice.document_type":      invoicing.DefaultDocumentType,
	"invoice.idempotency_ttl":    24 * time.Hour,
	"invoice.export_limit":       10000,

	"company.name":         "Optica",
	"company.rtn":          "",
	"company.address":      "",
	"company.phone":        "",
	"company.email":        "",
	"company.cai":          "",
	"company.legal_footer": "",

	"receipt.renderer":          "chromedp",
	"receipt.chrome_path":       "",
	"receipt.chrome_remote_url": "",
	"receipt.no_sandbox":        false,
	"receipt.timeout":           30 * time.Second,
	"receipt.paper_size":        "A4",
	"receipt.repair_interval":   time.Duration(0),
	"receipt.repair_batch_size": 50,

	"storage.driver":               "local",
	"storage.base_path":            "./facturas",
	"storage.s3_bucket":            "",
	"storage.s3_region":            "us-east-1",
	"storage.s3_endpoint":          "",
	"storage.s3_access_key_id":     "",
	"storage.s3_secret_access_key": "",
	"storage.s3_prefix":            "",
	"storage.s3_use_path_style":    false,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "optica-backend",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.db_lock_wait_threshold":  time.Duration(0),
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_endpoint":      "http://localhost:4040",
}
