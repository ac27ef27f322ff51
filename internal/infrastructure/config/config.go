// Package config loads the service configuration from config.toml and
// OPTICA_* environment variables with viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/optica/backend/internal/domain/invoicing"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OPTICA_DATABASE_PASSWORD
const EnvPrefix = "OPTICA"

// Config is the whole service configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Company   CompanyConfig   `mapstructure:"company"`
	Receipt   ReceiptConfig   `mapstructure:"receipt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// IsProduction reports whether the stricter production checks apply
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

// DatabaseConfig selects PostgreSQL or a SQLite file. Connection lifetimes
// are in minutes.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"`
}

// DSN returns the sqlite path, or a postgres URL with escaped credentials
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig backs the shared idempotency store when Enabled
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type JWTConfig struct {
	Secret                string        `mapstructure:"secret"`
	Issuer                string        `mapstructure:"issuer"`
	AccessTokenExpiration time.Duration `mapstructure:"access_token_expiration"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// InvoiceConfig holds the fiscal settings applied to every invoice
type InvoiceConfig struct {
	TaxRate           float64       `mapstructure:"tax_rate"` // ISV, 0.15 in Honduras
	CurrencyPrecision int32         `mapstructure:"currency_precision"`
	CurrencySymbol    string        `mapstructure:"currency_symbol"`
	DocumentType      string        `mapstructure:"document_type"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
	ExportLimit       int           `mapstructure:"export_limit"`
}

// TaxPolicy returns the tax policy injected into the invoice calculator
func (c *Config) TaxPolicy() invoicing.TaxPolicy {
	return invoicing.TaxPolicy{
		Rate:      decimal.NewFromFloat(c.Invoice.TaxRate),
		Precision: c.Invoice.CurrencyPrecision,
	}
}

// CompanyConfig is the issuer block printed on receipts
type CompanyConfig struct {
	Name        string `mapstructure:"name"`
	RTN         string `mapstructure:"rtn"`
	Address     string `mapstructure:"address"`
	Phone       string `mapstructure:"phone"`
	Email       string `mapstructure:"email"`
	CAI         string `mapstructure:"cai"`
	LegalFooter string `mapstructure:"legal_footer"`
}

// ReceiptConfig configures PDF rendering. A zero RepairInterval disables the
// background repair of missing receipts.
type ReceiptConfig struct {
	Renderer        string        `mapstructure:"renderer"` // chromedp or none
	ChromePath      string        `mapstructure:"chrome_path"`
	ChromeRemoteURL string        `mapstructure:"chrome_remote_url"`
	NoSandbox       bool          `mapstructure:"no_sandbox"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PaperSize       string        `mapstructure:"paper_size"` // A4, A5, LETTER, RECEIPT_80MM
	RepairInterval  time.Duration `mapstructure:"repair_interval"`
	RepairBatchSize int           `mapstructure:"repair_batch_size"`
}

// StorageConfig selects where receipt PDFs are kept
type StorageConfig struct {
	Driver            string `mapstructure:"driver"` // local or s3
	BasePath          string `mapstructure:"base_path"`
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3Prefix          string `mapstructure:"s3_prefix"`
	S3UsePathStyle    bool   `mapstructure:"s3_use_path_style"`
}

// TelemetryConfig covers OTLP export, database tracing and profiling.
// DBLockWaitThresh applies to SELECT ... FOR UPDATE; zero falls back to
// DBSlowQueryThresh.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
	DBLockWaitThresh  time.Duration `mapstructure:"db_lock_wait_threshold"`
	ProfilingEnabled  bool          `mapstructure:"profiling_enabled"`
	PyroscopeEndpoint string        `mapstructure:"pyroscope_endpoint"`
}

// Load reads config.toml from ".", "./config" or "/app" when present.
// Environment variables override the file, which overrides the defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./config", "/app"} {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile is Load with an explicit file, which must exist
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	// every key needs a default, or AutomaticEnv never sees it during Unmarshal
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
