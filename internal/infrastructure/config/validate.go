package config

import (
	"errors"
	"fmt"
	"slices"
)

// minProductionSecret is the shortest JWT secret accepted in production
const minProductionSecret = 32

// validate reports every problem at once, joined with errors.Join
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.Driver == "postgres" || db.Driver == "sqlite",
		"database.driver must be postgres or sqlite, got %q", db.Driver)
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	check(c.Invoice.TaxRate >= 0 && c.Invoice.TaxRate < 1,
		"invoice.tax_rate must be in [0, 1), got %g", c.Invoice.TaxRate)
	check(c.Invoice.CurrencyPrecision >= 0 && c.Invoice.CurrencyPrecision <= 4,
		"invoice.currency_precision must be between 0 and 4, got %d", c.Invoice.CurrencyPrecision)

	check(c.Receipt.Renderer == "chromedp" || c.Receipt.Renderer == "none",
		"receipt.renderer must be chromedp or none, got %q", c.Receipt.Renderer)

	switch c.Storage.Driver {
	case "local":
	case "s3":
		check(c.Storage.S3Bucket != "", "storage.s3_bucket is required when storage.driver is s3")
	default:
		check(false, "storage.driver must be local or s3, got %q", c.Storage.Driver)
	}

	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)

	if c.App.IsProduction() {
		errs = append(errs, c.productionProblems()...)
	}
	return errors.Join(errs...)
}

// productionProblems lists settings that are only acceptable outside
// production
func (c *Config) productionProblems() []error {
	var errs []error
	switch {
	case c.JWT.Secret == "":
		errs = append(errs, errors.New("jwt.secret is required in production"))
	case len(c.JWT.Secret) < minProductionSecret:
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d characters in production", minProductionSecret))
	}
	if c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			errs = append(errs, errors.New("database.password is required in production"))
		}
		if c.Database.SSLMode == "disable" {
			errs = append(errs, errors.New("database.sslmode cannot be disable in production"))
		}
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		errs = append(errs, errors.New("http.cors_allow_origins cannot contain * in production"))
	}
	if c.Telemetry.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql would put invoice data in traces and is refused in production"))
	}
	return errs
}
