package hydration

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/metrics"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

const jobName = "hydrate_competitor"

// Fetcher is the product-fetch slice of the upstream client.
type Fetcher interface {
	GetProduct(ctx context.Context, asin, amazonDomain string) (*rainforest.RawProduct, error)
}

// Worker drains the hydration queue: each job fetches one competitor's
// product data and upserts it under its comparison. Transient upstream
// failures retry with backoff inside the attempt; an attempt that still
// fails goes back on the queue until the job runs out of attempts.
type Worker struct {
	queue   Queue
	fetcher Fetcher
	catalog catalog.Service
	cfg     config.HydrationConfig
	metrics *metrics.HydrationMetrics
	logg    *logger.Logger
}

// NewWorker wires the hydration worker.
func NewWorker(queue Queue, fetcher Fetcher, catalogSvc catalog.Service, cfg config.HydrationConfig, m *metrics.HydrationMetrics, logg *logger.Logger) *Worker {
	return &Worker{
		queue:   queue,
		fetcher: fetcher,
		catalog: catalogSvc,
		cfg:     cfg,
		metrics: m,
		logg:    logg,
	}
}

// Run consumes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		job, err := w.queue.Dequeue(ctx, w.cfg.PopTimeout)
		if errors.Is(err, ErrEmptyQueue) {
			w.reportDepth(ctx)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.logg != nil {
				w.logg.Error(ctx, "dequeue hydration job", err)
			}
			continue
		}

		w.Process(ctx, *job)
	}
}

// Process runs one job to completion, requeueing or dropping on failure.
func (w *Worker) Process(ctx context.Context, job Job) {
	logCtx := ctx
	if w.logg != nil {
		logCtx = w.logg.WithASIN(ctx, job.ASIN)
		logCtx = w.logg.WithComparisonID(logCtx, job.ComparisonID.String())
		logCtx = w.logg.WithField(logCtx, "attempts", job.Attempts)
	}

	start := time.Now()
	err := w.hydrate(ctx, job)
	w.metrics.ObserveDuration(jobName, time.Since(start))

	if err == nil {
		w.metrics.IncSuccess(jobName)
		if w.logg != nil {
			w.logg.Debug(logCtx, "competitor hydrated")
		}
		return
	}

	job.Attempts++
	if job.Attempts < w.cfg.MaxAttempts && isTransient(err) {
		if requeueErr := w.queue.Enqueue(ctx, job); requeueErr != nil {
			w.metrics.IncFailure(jobName)
			if w.logg != nil {
				w.logg.Error(logCtx, "requeue hydration job", requeueErr)
			}
			return
		}
		w.metrics.IncRetry()
		if w.logg != nil {
			w.logg.Warn(logCtx, "hydration attempt failed, job requeued")
		}
		return
	}

	w.metrics.IncFailure(jobName)
	if w.logg != nil {
		w.logg.Error(logCtx, "hydration job dropped", err)
	}
}

func (w *Worker) hydrate(ctx context.Context, job Job) error {
	var raw *rainforest.RawProduct

	backoff := retry.WithMaxRetries(2, retry.NewExponential(w.retryBase()))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		fetched, err := w.fetcher.GetProduct(ctx, job.ASIN, job.Marketplace)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		raw = fetched
		return nil
	})
	if err != nil {
		return err
	}

	canonical := extraction.Normalize(raw, job.Marketplace)
	comparisonID := job.ComparisonID
	_, _, err = w.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{ComparisonID: &comparisonID})
	return err
}

func (w *Worker) retryBase() time.Duration {
	if w.cfg.RetryBase > 0 {
		return w.cfg.RetryBase
	}
	return time.Second
}

func (w *Worker) reportDepth(ctx context.Context) {
	depth, err := w.queue.Depth(ctx)
	if err != nil {
		return
	}
	w.metrics.SetQueueDepth(depth)
}

// isTransient reports whether the failure is worth another attempt. Upstream
// outages and rate limits are; a missing ASIN or bad payload is not.
func isTransient(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeDependency) || pkgerrors.IsCode(err, pkgerrors.CodeRateLimit)
}
