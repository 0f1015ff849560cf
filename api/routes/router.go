package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dariomedina/shelfrival-backend/api/controllers"
	"github.com/dariomedina/shelfrival-backend/api/middleware"
	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	comparison "github.com/dariomedina/shelfrival-backend/internal/comparisons"
	"github.com/dariomedina/shelfrival-backend/internal/ingest"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	registry *prometheus.Registry,
	ingestService ingest.Service,
	comparisonService comparison.Service,
	catalogService catalog.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/fetch", controllers.FetchProduct(ingestService, logg))
			r.Post("/fetch-multi", controllers.FetchMulti(ingestService, logg))
			r.Post("/manual", controllers.ManualEntry(ingestService, logg))
			r.Post("/search", controllers.ProductSearch(ingestService, logg))
		})

		r.Route("/comparisons/{comparisonId}", func(r chi.Router) {
			r.Get("/", controllers.ComparisonDetail(comparisonService, catalogService, logg))
			r.Post("/competitors", controllers.AppendCompetitors(ingestService, logg))
		})
	})

	return r
}
