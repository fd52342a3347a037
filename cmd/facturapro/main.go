package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/facturapro/facturapro/internal/app"
	"github.com/facturapro/facturapro/internal/auth"
	"github.com/facturapro/facturapro/internal/editor"
	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/invoice/export"
	invoicehttp "github.com/facturapro/facturapro/internal/invoice/http"
	"github.com/facturapro/facturapro/internal/invoice/preview"
	"github.com/facturapro/facturapro/internal/observability"
	"github.com/facturapro/facturapro/internal/platform/cache"
	"github.com/facturapro/facturapro/internal/platform/db"
	"github.com/facturapro/facturapro/internal/shared"
	"github.com/facturapro/facturapro/internal/view"
	"github.com/facturapro/facturapro/jobs"
	"github.com/facturapro/facturapro/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.WithApplicationName("facturapro"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "facturapro_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	renderer, err := preview.NewRenderer()
	if err != nil {
		logger.Error("parse preview templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	exporter, err := app.NewExporter(cfg, logger, metrics)
	if err != nil {
		logger.Error("init exporter", slog.Any("error", err))
		os.Exit(1)
	}
	store := export.NewFileStore(cfg.ExportStorageDir)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	invoiceService := invoice.NewService(invoice.NewRepository(dbpool), jobClient, logger)

	editorHandler := editor.NewHandler(editor.Config{
		Logger:       logger,
		Templates:    templates,
		CSRF:         csrfManager,
		Drafts:       editor.NewDraftStore(redisClient, cfg.DraftTTL),
		Preview:      renderer,
		Exporter:     exporter,
		Invoices:     invoiceService,
		Issuers:      authService,
		LogoMaxBytes: cfg.LogoMaxBytes,
	})
	invoiceHandler := invoicehttp.NewHandler(invoicehttp.Config{
		Logger:      logger,
		Templates:   templates,
		CSRF:        csrfManager,
		Service:     invoiceService,
		Preview:     renderer,
		Exporter:    exporter,
		Store:       store,
		Issuers:     authService,
		Idempotency: idempotencyStore,
	})

	reportClient := report.NewClient(cfg.GotenbergURL, nil)
	reportHandler := report.NewHandler(reportClient, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		EditorHandler:  editorHandler,
		InvoiceHandler: invoiceHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	go cleanupIdempotency(ctx, idempotencyStore, logger)

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("rasterizer", cfg.ExportRasterizer))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// cleanupIdempotency drops API idempotency keys older than a day.
func cleanupIdempotency(ctx context.Context, store *shared.IdempotencyStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, 24*time.Hour); err != nil {
				logger.Warn("idempotency cleanup", slog.Any("error", err))
			}
		}
	}
}
