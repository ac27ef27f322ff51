package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optica/backend/internal/bootstrap"
	"github.com/optica/backend/internal/infrastructure/auth"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/infrastructure/persistence"
	"github.com/optica/backend/internal/interfaces/http/handler"
	"github.com/optica/backend/internal/interfaces/http/middleware"
	"github.com/optica/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// newEngine mounts the middleware chain, /health and the /api/v1 routes.
// Middleware order: request id, panic recovery, access log, tracing,
// metrics and profiling labels, security headers and CORS, body limit and
// request deadline.
func newEngine(cfg *config.Config, log *zap.Logger, tel *telemetryStack, services *bootstrap.Invoicing, db *persistence.Database) *gin.Engine {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID(), logger.Recovery(log), logger.AccessLog(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	})...)
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.meter,
		Enabled:       tel.meter.IsEnabled(),
		Logger:        log,
	}))
	if tel.profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition", handler.ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize), middleware.Timeout(cfg.HTTP.RequestTimeout))

	engine.GET("/health", handler.NewHealthHandler(db, cfg.App.Name).Check)

	api := router.NewRouter(engine, router.WithAPIVersion("v1"))
	api.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: auth.NewJWTService(cfg.JWT),
		Logger:     log,
	}))
	api.Use(middleware.TraceEmployee())
	routes := api.RegisterInvoicing(router.InvoicingHandlers{
		Invoices: handler.NewInvoiceHandler(services.Invoices),
		Payments: handler.NewPaymentHandler(services.Payments),
		Reports:  handler.NewReportHandler(services.Invoices, cfg.Invoice.ExportLimit, cfg.Invoice.CurrencyPrecision),
	}).Setup()
	log.Debug("API routes mounted", zap.Strings("routes", routes))

	return engine
}
