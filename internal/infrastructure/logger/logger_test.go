package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("console and json formats", func(t *testing.T) {
		for _, format := range []string{"console", "json"} {
			l, err := New(&Config{Level: "debug", Format: format, Output: "stdout"})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
		}
	})

	t.Run("writes to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(&Config{Level: "info", Format: "json", Output: path, Service: "optica"})
		require.NoError(t, err)
		l.Info("invoice issued", zap.Int64("invoice_id", 1))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"invoice issued"`)
		assert.Contains(t, string(data), `"service":"optica"`)
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
		assert.Error(t, err)
	})

	t.Run("extra cores receive entries", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "info", Format: "json", Output: "stderr"}, core)
		require.NoError(t, err)
		l.Info("teed")
		assert.Equal(t, 1, recorded.FilterMessage("teed").Len())
	})
}

func TestNew_TimeFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Format: "json", Output: path, TimeFormat: "2006-01-02"})
	require.NoError(t, err)
	l.Info("dated")
	require.NoError(t, Sync(l))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"time":"`+time.Now().Format("2006-01-02")+`"`)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, _ = WithUserID(ctx, FromContext(ctx), "user-9")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-9", GetUserID(ctx))

	L(ctx).Info("hello")
	entry := recorded.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "user-9", fields["user_id"])
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithTraceContext(context.Background(), base).Info("no span")
	assert.NotContains(t, recorded.All()[0].ContextMap(), "trace_id")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	WithTraceContext(ctx, base).Info("with span")
	fields := recorded.All()[1].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success logs info", http.StatusOK, zapcore.InfoLevel},
		{"client error logs warn", http.StatusBadRequest, zapcore.WarnLevel},
		{"server error logs error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set("request_id", "req-42")
				c.Next()
			})
			router.Use(AccessLog(zap.New(core)))

			var ctxRequestID string
			router.GET("/api/v1/facturas/:id", func(c *gin.Context) {
				ctxRequestID = GetRequestID(c.Request.Context())
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/facturas/7?expand=pagos", nil)
			router.ServeHTTP(w, req)

			logs := recorded.FilterMessage("HTTP Request").All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			fields := logs[0].ContextMap()
			assert.Equal(t, "req-42", fields["request_id"])
			assert.Equal(t, "/api/v1/facturas/:id", fields["route"])
			assert.Equal(t, "expand=pagos", fields["query"])
			assert.Equal(t, "req-42", ctxRequestID)
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("receipt template exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestAccessLog_SkipsDisabledLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.WarnLevel)
	router := gin.New()
	router.Use(AccessLog(zap.New(core)))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, int64(http.StatusNotFound), logs[0].ContextMap()["status"])
	assert.NotContains(t, logs[0].ContextMap(), "query")
}

func TestContextHelpers_Layered(t *testing.T) {
	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
	assert.Empty(t, GetUserID(ctx))

	ctx, _ = WithUserID(ctx, base, "7")
	ctx, _ = WithRequestID(ctx, FromContext(ctx), "req-9")
	assert.Equal(t, "7", GetUserID(ctx), "request id keeps the user")
	assert.Equal(t, "req-9", GetRequestID(ctx))
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return `SELECT * FROM "facturas" WHERE id = 1`, 1 }
	lockFn := func() (string, int64) { return `SELECT * FROM "facturas" WHERE id = 1 FOR UPDATE`, 1 }

	newLogger := func(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
		core, recorded := observer.New(zapcore.DebugLevel)
		return NewGormLogger(zap.New(core), level, opts...), recorded
	}

	t.Run("errors are logged", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Error)
		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("deadlock detected"))
		assert.Equal(t, 1, recorded.FilterMessage("SQL failed").Len())
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Error)
		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Empty(t, recorded.All())
	})

	t.Run("record not found can be logged", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
		assert.Equal(t, 1, recorded.FilterMessage("Slow SQL").Len())
	})

	t.Run("row locks use their own threshold", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Warn,
			WithSlowThreshold(time.Hour),
			WithLockWaitThreshold(10*time.Millisecond))

		gl.Trace(context.Background(), time.Now().Add(-50*time.Millisecond), lockFn, nil)
		gl.Trace(context.Background(), time.Now().Add(-50*time.Millisecond), sqlFn, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Equal(t, "Slow row lock", logs[0].Message)
		assert.Equal(t, 10*time.Millisecond, logs[0].ContextMap()["threshold"])
	})

	t.Run("fast statements below info are not rendered", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Warn)
		called := false
		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			called = true
			return "SELECT 1", 1
		}, nil)
		assert.True(t, called)
		assert.Empty(t, recorded.All())

		gl, _ = newLogger(gormlogger.Warn, WithSlowThreshold(0))
		called = false
		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			called = true
			return "SELECT 1", 1
		}, nil)
		assert.False(t, called)
	})

	t.Run("info level logs statements with the request id", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Info)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-7")
		gl.Trace(ctx, time.Now(), sqlFn, nil)

		logs := recorded.FilterMessage("SQL").All()
		require.Len(t, logs, 1)
		assert.Equal(t, "req-7", logs[0].ContextMap()["request_id"])
	})

	t.Run("long statements are truncated", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Info)
		long := "INSERT INTO factura_detalles VALUES " + strings.Repeat("(1,2,3),", 1000)
		gl.Trace(context.Background(), time.Now(), func() (string, int64) { return long, 1000 }, nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		assert.Len(t, logs[0].ContextMap()["sql"], maxLoggedSQL+3)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, recorded := newLogger(gormlogger.Info)
		gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), sqlFn, errors.New("x"))
		assert.Empty(t, recorded.All())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("FATAL"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
