package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowQuery = 200 * time.Millisecond
	maxLoggedSQL     = 2048
)

// GormLogger routes GORM output through zap, tagged with the request and
// trace of the calling context.
//
// Statements taking a row lock (payments lock their invoice with FOR UPDATE)
// get their own, usually lower, threshold: a slow lock means cashiers are
// queueing on the same invoice.
type GormLogger struct {
	logger       *zap.Logger
	level        gormlogger.LogLevel
	slow         time.Duration
	lockWait     time.Duration
	skipNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold warns about statements slower than d. Zero disables it.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slow = d }
}

// WithLockWaitThreshold warns about locking statements slower than d.
// Zero falls back to the slow threshold.
func WithLockWaitThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.lockWait = d }
}

// WithIgnoreRecordNotFoundError drops gorm.ErrRecordNotFound, which lookups
// of unknown invoice ids produce routinely.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.skipNotFound = ignore }
}

// NewGormLogger returns a GORM logger writing to the "gorm" child of zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:       zapLogger.Named("gorm"),
		level:        level,
		slow:         defaultSlowQuery,
		skipNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.forContext(ctx).Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.forContext(ctx).Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.forContext(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace logs one statement. fc is only evaluated when something is logged.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	if err != nil {
		if l.level < gormlogger.Error || (l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return
		}
		sql, rows := fc()
		l.forContext(ctx).Error("SQL failed", append(statementFields(sql, rows, elapsed), zap.Error(err))...)
		return
	}

	if l.level >= gormlogger.Warn && (l.slow > 0 || l.lockWait > 0) {
		sql, rows := fc()
		threshold, msg := l.slow, "Slow SQL"
		if isLocking(sql) && l.lockWait > 0 {
			threshold, msg = l.lockWait, "Slow row lock"
		}
		if threshold > 0 && elapsed > threshold {
			l.forContext(ctx).Warn(msg, append(statementFields(sql, rows, elapsed), zap.Duration("threshold", threshold))...)
			return
		}
		if l.level >= gormlogger.Info {
			l.forContext(ctx).Debug("SQL", statementFields(sql, rows, elapsed)...)
		}
		return
	}

	if l.level >= gormlogger.Info {
		sql, rows := fc()
		l.forContext(ctx).Debug("SQL", statementFields(sql, rows, elapsed)...)
	}
}

func statementFields(sql string, rows int64, elapsed time.Duration) []zap.Field {
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	return []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
}

func isLocking(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}

// forContext tags the logger with the request, user and trace in ctx
func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return l.logger
	}
	fields := make([]zap.Field, 0, 2)
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return WithTraceContext(ctx, l.logger.With(fields...))
}

// MapGormLogLevel turns the application log level into a GORM level. SQL
// text is only logged at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error", "fatal":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
