package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	"github.com/dariomedina/shelfrival-backend/internal/hydration"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/metrics"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
	"github.com/dariomedina/shelfrival-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "hydration-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "hydration-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	rainforestClient, err := rainforest.NewClient(cfg.Rainforest, logg)
	if err != nil {
		logg.Error(ctx, "failed to create rainforest client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	hydrationMetrics := metrics.NewHydrationMetrics(registry)

	catalogService := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, logg)
	queue := hydration.NewQueue(redisClient, cfg.Hydration.QueueKey)
	worker := hydration.NewWorker(queue, rainforestClient, catalogService, cfg.Hydration, hydrationMetrics, logg)

	go serveMetrics(ctx, cfg, logg, registry)

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"queue": cfg.Hydration.QueueKey,
	})
	logg.Info(logCtx, "starting hydration worker")

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(logCtx, "hydration worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "hydration worker shutting down gracefully")
}

// serveMetrics exposes the worker's prometheus registry on the app port.
func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: ":" + cfg.App.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
