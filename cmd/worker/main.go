package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/facturapro/facturapro/internal/app"
	"github.com/facturapro/facturapro/internal/auth"
	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/export"
	jobmetrics "github.com/facturapro/facturapro/internal/jobs"
	"github.com/facturapro/facturapro/internal/observability"
	"github.com/facturapro/facturapro/internal/platform/cache"
	"github.com/facturapro/facturapro/internal/platform/db"
	"github.com/facturapro/facturapro/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.WithApplicationName("facturapro-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	exporter, err := app.NewExporter(cfg, logger, metrics)
	if err != nil {
		logger.Error("init exporter", slog.Any("error", err))
		os.Exit(1)
	}
	store := export.NewFileStore(cfg.ExportStorageDir)

	invoiceService := invoice.NewService(invoice.NewRepository(pool), nil, logger)
	authService := auth.NewService(auth.NewRepository(pool))

	exportJob := export.NewJob(export.JobConfig{
		Invoices: invoiceService,
		Exporter: exporter,
		Store:    store,
		Locker:   redislock.New(redisClient),
		LockTTL:  cfg.ExportTimeout + 30*time.Second,
		Logger:   logger,
		Issuers:  authService,
	})
	sweepJob := export.NewSweepJob(store, logger)

	sweepTask, err := jobs.NewExportSweepTask(cfg.ExportRetention)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	tracked := jobmetrics.NewMetrics(metrics.Registerer())

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceExport, Handler: tracked.Wrap(jobs.TaskInvoiceExport, exportJob.Handle)},
			{Type: jobs.TaskExportSweep, Handler: tracked.Wrap(jobs.TaskExportSweep, sweepJob.Handle)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/jobs", jobs.NewHandler(inspector, logger).MountRoutes)
	server := &http.Server{
		Addr:              cfg.WorkerAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
