package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradebill/tradebill/internal/actions"
	"github.com/tradebill/tradebill/internal/app"
	"github.com/tradebill/tradebill/internal/billing"
	"github.com/tradebill/tradebill/internal/directory"
	"github.com/tradebill/tradebill/internal/observability"
	"github.com/tradebill/tradebill/internal/platform/cache"
	"github.com/tradebill/tradebill/internal/platform/db"
	"github.com/tradebill/tradebill/internal/reporting"
	"github.com/tradebill/tradebill/internal/schedule"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	billingRepo := billing.NewRepository(pool)
	directoryRepo := directory.NewRepository(pool)
	scheduleRepo := schedule.NewRepository(pool)

	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL)
	reportingService := reporting.NewService(billingRepo, reportCache, logger)
	reportingHandler := reporting.NewHandler(logger, reportingService)

	go func() {
		if err := reportCache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("cache invalidation listener stopped", slog.Any("error", err))
		}
	}()

	billingService := billing.NewService(billingRepo, directoryRepo, reportingService, logger)
	billingHandler := billing.NewHandler(logger, billingService)

	actionsService := actions.NewService(billingRepo, scheduleRepo, logger)
	actionsHandler := actions.NewHandler(logger, actionsService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		BillingHandler:   billingHandler,
		ReportingHandler: reportingHandler,
		ActionsHandler:   actionsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
