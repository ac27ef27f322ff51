package telemetry

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQuery = 200 * time.Millisecond

	startedAtKey = "telemetry:started_at"
)

// Attributes added to the otelgorm statement spans
const (
	dbSystemKey     = attribute.Key("db.system")
	dbTableKey      = attribute.Key("db.sql.table")
	dbRowsKey       = attribute.Key("db.rows_affected")
	dbRowLockKey    = attribute.Key("db.row_lock")
	dbSlowKey       = attribute.Key("db.slow_query")
	dbDurationMSKey = attribute.Key("db.query_duration_ms")
)

// DBTracingConfig tunes statement spans. LockWait applies to SELECT ... FOR
// UPDATE, which payments use to serialize on an invoice; zero means SlowQuery.
type DBTracingConfig struct {
	LogFullSQL bool
	SlowQuery  time.Duration
	LockWait   time.Duration
	DBSystem   string
}

// DBSystemForDialect maps a gorm dialector name to its db.system value
func DBSystemForDialect(name string) string {
	switch name {
	case "postgres":
		return "postgresql"
	case "sqlite", "sqlite3":
		return "sqlite"
	}
	return name
}

// DBTracing is a gorm plugin that installs otelgorm and enriches its spans
// with table, row count, row lock and slow statement markers.
type DBTracing struct {
	cfg    DBTracingConfig
	logger *zap.Logger
}

// NewDBTracing returns the plugin. Install it with db.Use.
func NewDBTracing(cfg DBTracingConfig, logger *zap.Logger) *DBTracing {
	if cfg.SlowQuery <= 0 {
		cfg.SlowQuery = defaultSlowQuery
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = cfg.SlowQuery
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracing{cfg: cfg, logger: logger}
}

func (*DBTracing) Name() string { return "optica:db_tracing" }

// Initialize is called by gorm from db.Use
func (t *DBTracing) Initialize(db *gorm.DB) error {
	system := t.cfg.DBSystem
	if system == "" {
		system = DBSystemForDialect(db.Dialector.Name())
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(system),
		otelgorm.WithAttributes(dbSystemKey.String(system)),
	}
	if !t.cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := t.registerCallbacks(db); err != nil {
		return err
	}

	t.logger.Info("Database tracing enabled",
		zap.String("db_system", system),
		zap.Bool("log_full_sql", t.cfg.LogFullSQL),
		zap.Duration("slow_query", t.cfg.SlowQuery),
		zap.Duration("lock_wait", t.cfg.LockWait),
	)
	return nil
}

// registerCallbacks brackets each gorm operation. The closing callback runs
// before otelgorm ends its span.
func (t *DBTracing) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:start_create", markStart),
		cb.Query().Before("gorm:query").Register("telemetry:start_query", markStart),
		cb.Update().Before("gorm:update").Register("telemetry:start_update", markStart),
		cb.Delete().Before("gorm:delete").Register("telemetry:start_delete", markStart),
		cb.Row().Before("gorm:row").Register("telemetry:start_row", markStart),
		cb.Raw().Before("gorm:raw").Register("telemetry:start_raw", markStart),

		cb.Create().After("gorm:create").Before("otel:after:create").Register("telemetry:end_create", t.annotate),
		cb.Query().After("gorm:query").Before("otel:after:query").Register("telemetry:end_query", t.annotate),
		cb.Update().After("gorm:update").Before("otel:after:update").Register("telemetry:end_update", t.annotate),
		cb.Delete().After("gorm:delete").Before("otel:after:delete").Register("telemetry:end_delete", t.annotate),
		cb.Row().After("gorm:row").Before("otel:after:row").Register("telemetry:end_row", t.annotate),
		cb.Raw().After("gorm:raw").Before("otel:after:raw").Register("telemetry:end_raw", t.annotate),
	)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startedAtKey, time.Now())
}

// annotate decorates the span of the finished statement. Record-not-found is
// an expected lookup miss and does not fail the span.
func (t *DBTracing) annotate(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Context == nil {
		return
	}
	span := trace.SpanFromContext(stmt.Context)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 5)
	if stmt.Table != "" {
		attrs = append(attrs, dbTableKey.String(stmt.Table))
	}
	if stmt.RowsAffected >= 0 {
		attrs = append(attrs, dbRowsKey.Int64(stmt.RowsAffected))
	}
	locking := isRowLock(stmt.SQL.String())
	if locking {
		attrs = append(attrs, dbRowLockKey.Bool(true))
	}

	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if started, ok := db.InstanceGet(startedAtKey); ok {
		limit := t.cfg.SlowQuery
		if locking {
			limit = t.cfg.LockWait
		}
		if elapsed := time.Since(started.(time.Time)); elapsed > limit {
			attrs = append(attrs, dbSlowKey.Bool(true), dbDurationMSKey.Int64(elapsed.Milliseconds()))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", limit.Milliseconds()),
			))
		}
	}
	span.SetAttributes(attrs...)
}

func isRowLock(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}
