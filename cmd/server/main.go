package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/optica/backend/internal/bootstrap"
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/optica/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// shutdownGrace bounds draining in-flight requests and background jobs
const shutdownGrace = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "optica-backend:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	log := tel.log
	defer func() { _ = logger.Sync(log) }()
	defer tel.shutdown()

	log.Info("Starting invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeLogged(log, "database", db.Close)
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	services, err := bootstrap.NewInvoicing(ctx, cfg, db, log, bootstrap.Options{Metrics: tel.invoices})
	if err != nil {
		return fmt.Errorf("initialize invoicing: %w", err)
	}
	defer closeLogged(log, "invoicing resources", services.Close)

	jobs, err := startReceiptRepair(ctx, cfg, services, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        newEngine(cfg, log, tel, services, db),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}
	return serve(ctx, srv, log, jobs...)
}

// stopper is a background component stopped after the server drained
type stopper struct {
	name string
	stop func(context.Context) error
}

// startReceiptRepair schedules the repair of receipts that failed to render
// when their invoice was issued
func startReceiptRepair(ctx context.Context, cfg *config.Config, services *bootstrap.Invoicing, log *zap.Logger) ([]stopper, error) {
	jobs, err := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	jobs.Register(scheduler.JobKindReceiptRepair,
		scheduler.NewReceiptRepairExecutor(services.Invoices, cfg.Receipt.RepairBatchSize, log))
	if err := jobs.Start(ctx); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	trigger := scheduler.NewIntervalTrigger(cfg.Receipt.RepairInterval, scheduler.JobKindReceiptRepair,
		jobs, log, scheduler.FireOnStart())
	if err := trigger.Start(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("start receipt repair trigger: %w", err), jobs.Stop(context.Background()))
	}
	// the trigger feeds the scheduler, so it stops first
	return []stopper{{"receipt repair trigger", trigger.Stop}, {"scheduler", jobs.Stop}}, nil
}

// serve runs srv until ctx is cancelled or the listener fails, then drains
// requests and stops the background components
func serve(ctx context.Context, srv *http.Server, log *zap.Logger, background ...stopper) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(drainCtx)
		for _, b := range background {
			if stopErr := b.stop(drainCtx); stopErr != nil {
				log.Warn("Error stopping "+b.name, zap.Error(stopErr))
			}
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

func closeLogged(log *zap.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("Error closing "+what, zap.Error(err))
	}
}
