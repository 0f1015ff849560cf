package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dariomedina/shelfrival-backend/api/responses"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShelfRival-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the database and redis. The upstream product API is
// deliberately not probed: every request against it costs a credit.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShelfRival-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP == nil {
			checks["database"] = "not configured"
			healthy = false
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		if redisP == nil {
			checks["redis"] = "not configured"
			healthy = false
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
