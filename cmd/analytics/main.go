package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rx3lixir/ci-analytics/internal/api"
	"github.com/rx3lixir/ci-analytics/internal/artifacts"
	"github.com/rx3lixir/ci-analytics/internal/config"
	"github.com/rx3lixir/ci-analytics/internal/db"
	"github.com/rx3lixir/ci-analytics/internal/search"
	syncsvc "github.com/rx3lixir/ci-analytics/internal/sync"
	"github.com/rx3lixir/ci-analytics/pkg/health"
	"github.com/rx3lixir/ci-analytics/pkg/logger"
	"github.com/rx3lixir/ci-analytics/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		logger.NewDefault().Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.CreatePostgresPool(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	searchClient, err := search.New(&cfg.Search, log)
	if err != nil {
		log.Error("failed to create search client", "error", err)
		os.Exit(1)
	}

	store := db.NewPostgresStore(pool)
	files := artifacts.New(&cfg.API, log)
	syncService := syncsvc.NewService(searchClient, store, files, log)

	apiServer := api.NewServer(cfg.HTTPAddr, syncService, searchClient, log)
	metricsServer := metrics.NewServer(cfg.MetricsAddr, log)

	checks := health.New("ci-analytics", 5*time.Second)
	checks.AddCheck("postgres", health.PostgresChecker(pool))
	checks.AddCheck("search", health.PingChecker(searchClient))
	healthServer := health.NewServer(cfg.HealthAddr, checks, log)

	errCh := make(chan error, 3)
	go func() { errCh <- apiServer.Start() }()
	go func() { errCh <- metricsServer.Start() }()
	go func() { errCh <- healthServer.Start() }()

	log.Info("ci-analytics started",
		"http", cfg.HTTPAddr,
		"metrics", cfg.MetricsAddr,
		"health", cfg.HealthAddr,
	)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("health server shutdown failed", "error", err)
	}
}
