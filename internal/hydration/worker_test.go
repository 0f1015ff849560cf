package hydration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

type stubQueue struct {
	jobs []Job
}

func (q *stubQueue) Enqueue(ctx context.Context, job Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	if len(q.jobs) == 0 {
		return nil, ErrEmptyQueue
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &job, nil
}

func (q *stubQueue) Depth(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

type stubFetcher struct {
	calls int
	raw   *rainforest.RawProduct
	err   error
}

func (f *stubFetcher) GetProduct(ctx context.Context, asin, amazonDomain string) (*rainforest.RawProduct, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type stubCatalog struct {
	upserts []catalog.UpsertOptions
	asins   []string
	err     error
}

func (c *stubCatalog) UpsertProduct(ctx context.Context, canonical extraction.CanonicalProduct, opts catalog.UpsertOptions) (*models.Product, catalog.VideoResult, error) {
	if c.err != nil {
		return nil, catalog.VideoResult{}, c.err
	}
	c.upserts = append(c.upserts, opts)
	c.asins = append(c.asins, canonical.ASIN)
	return &models.Product{ASIN: canonical.ASIN}, catalog.VideoResult{}, nil
}

func (c *stubCatalog) GetProduct(ctx context.Context, asin, marketplace string) (*models.Product, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "not stubbed")
}

func (c *stubCatalog) ListByComparison(ctx context.Context, comparisonID uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

func (c *stubCatalog) Detach(ctx context.Context, asin, marketplace string) error { return nil }

func (c *stubCatalog) SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error {
	return nil
}

func testConfig() config.HydrationConfig {
	return config.HydrationConfig{
		PopTimeout:  10 * time.Millisecond,
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
	}
}

func TestProcessHydratesAndAttachesToComparison(t *testing.T) {
	queue := &stubQueue{}
	fetcher := &stubFetcher{raw: &rainforest.RawProduct{ASIN: "B001", Title: "Rival"}}
	catalogSvc := &stubCatalog{}
	worker := NewWorker(queue, fetcher, catalogSvc, testConfig(), nil, nil)

	comparisonID := uuid.New()
	worker.Process(context.Background(), Job{ComparisonID: comparisonID, ASIN: "B001", Marketplace: "amazon.com"})

	require.Len(t, catalogSvc.upserts, 1)
	require.NotNil(t, catalogSvc.upserts[0].ComparisonID)
	assert.Equal(t, comparisonID, *catalogSvc.upserts[0].ComparisonID)
	assert.False(t, catalogSvc.upserts[0].IsMyProduct, "hydrated competitors are never the primary")
	assert.Equal(t, "B001", catalogSvc.asins[0])
	assert.Empty(t, queue.jobs)
}

func TestProcessRequeuesTransientFailure(t *testing.T) {
	queue := &stubQueue{}
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeDependency, "upstream down")}
	worker := NewWorker(queue, fetcher, &stubCatalog{}, testConfig(), nil, nil)

	worker.Process(context.Background(), Job{ComparisonID: uuid.New(), ASIN: "B001", Marketplace: "amazon.com"})

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, 1, queue.jobs[0].Attempts)
	assert.Greater(t, fetcher.calls, 1, "transient failures retry with backoff inside the attempt")
}

func TestProcessDropsPermanentFailure(t *testing.T) {
	queue := &stubQueue{}
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeNotFound, "no product found for ASIN B0GONE")}
	worker := NewWorker(queue, fetcher, &stubCatalog{}, testConfig(), nil, nil)

	worker.Process(context.Background(), Job{ComparisonID: uuid.New(), ASIN: "B0GONE", Marketplace: "amazon.com"})

	assert.Empty(t, queue.jobs, "a missing ASIN is not retryable")
	assert.Equal(t, 1, fetcher.calls)
}

func TestProcessDropsAfterMaxAttempts(t *testing.T) {
	queue := &stubQueue{}
	fetcher := &stubFetcher{err: pkgerrors.New(pkgerrors.CodeDependency, "still down")}
	worker := NewWorker(queue, fetcher, &stubCatalog{}, testConfig(), nil, nil)

	worker.Process(context.Background(), Job{ComparisonID: uuid.New(), ASIN: "B001", Marketplace: "amazon.com", Attempts: 2})

	assert.Empty(t, queue.jobs, "attempts exhausted, job dropped")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	queue := &stubQueue{}
	worker := NewWorker(queue, &stubFetcher{}, &stubCatalog{}, testConfig(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobRoundTripThroughQueue(t *testing.T) {
	queue := &stubQueue{}
	job := Job{ComparisonID: uuid.New(), ASIN: "B001", Marketplace: "amazon.com", Attempts: 1}
	require.NoError(t, queue.Enqueue(context.Background(), job))

	got, err := queue.Dequeue(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, job, *got)

	_, err = queue.Dequeue(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrEmptyQueue)
}
