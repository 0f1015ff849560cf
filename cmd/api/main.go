package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dariomedina/shelfrival-backend/api/routes"
	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	comparison "github.com/dariomedina/shelfrival-backend/internal/comparisons"
	"github.com/dariomedina/shelfrival-backend/internal/hydration"
	"github.com/dariomedina/shelfrival-backend/internal/ingest"
	suggestion "github.com/dariomedina/shelfrival-backend/internal/suggestions"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/metrics"
	"github.com/dariomedina/shelfrival-backend/pkg/migrate"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
	"github.com/dariomedina/shelfrival-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	rainforestClient, err := rainforest.NewClient(cfg.Rainforest, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rainforest client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ingestMetrics := metrics.NewIngestMetrics(registry)

	catalogService := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, logg)
	comparisonService := comparison.NewService(comparison.NewRepository(dbClient.DB()), dbClient, catalogService, logg)
	suggestionService := suggestion.NewService(rainforestClient, logg)
	queue := hydration.NewQueue(redisClient, cfg.Hydration.QueueKey)
	ingestService := ingest.NewService(
		rainforestClient,
		catalogService,
		comparisonService,
		suggestionService,
		queue,
		cfg.Ingest,
		ingestMetrics,
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			ingestService,
			comparisonService,
			catalogService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
