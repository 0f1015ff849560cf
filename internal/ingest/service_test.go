package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	comparison "github.com/dariomedina/shelfrival-backend/internal/comparisons"
	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/internal/hydration"
	suggestion "github.com/dariomedina/shelfrival-backend/internal/suggestions"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

type stubFetcher struct {
	mu       sync.Mutex
	products map[string]*rainforest.RawProduct
	errs     map[string]error
	calls    []string
	searches int
	results  []rainforest.SearchResult
}

func (f *stubFetcher) GetProduct(ctx context.Context, asin, amazonDomain string) (*rainforest.RawProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asin)
	if err, ok := f.errs[asin]; ok {
		return nil, err
	}
	if raw, ok := f.products[asin]; ok {
		return raw, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no product found for ASIN "+asin)
}

func (f *stubFetcher) Search(ctx context.Context, term, amazonDomain string) ([]rainforest.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return f.results, nil
}

type upsertCall struct {
	canonical extraction.CanonicalProduct
	opts      catalog.UpsertOptions
}

type stubCatalog struct {
	mu      sync.Mutex
	upserts []upsertCall
	failFor map[string]error
}

func (c *stubCatalog) UpsertProduct(ctx context.Context, canonical extraction.CanonicalProduct, opts catalog.UpsertOptions) (*models.Product, catalog.VideoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failFor[canonical.ASIN]; ok {
		return nil, catalog.VideoResult{}, err
	}
	c.upserts = append(c.upserts, upsertCall{canonical: canonical, opts: opts})
	return &models.Product{ID: uuid.New(), ASIN: canonical.ASIN, Title: canonical.Title}, catalog.VideoResult{}, nil
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

type stubComparisons struct {
	comparison *models.Comparison
	appended   [][]comparison.Candidate
	appendErr  error
	myProduct  string
	linked     map[string]bool
}

func newStubComparisons() *stubComparisons {
	return &stubComparisons{
		comparison: &models.Comparison{ID: uuid.New(), Marketplace: "amazon.com", Status: enums.ComparisonStatusDraft},
		linked:     map[string]bool{},
	}
}

func (s *stubComparisons) EnsureComparison(ctx context.Context, in comparison.EnsureInput) (*models.Comparison, error) {
	s.comparison.FolderID = in.FolderID
	return s.comparison, nil
}

func (s *stubComparisons) AppendCompetitors(ctx context.Context, comparisonID uuid.UUID, candidates []comparison.Candidate, meta comparison.AppendMeta) (*comparison.AppendResult, error) {
	if len(candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate asin is required")
	}
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.appended = append(s.appended, candidates)
	result := &comparison.AppendResult{ExistingCount: len(s.linked)}
	for _, candidate := range candidates {
		if s.linked[candidate.ASIN] {
			result.DuplicatesSkipped++
			continue
		}
		s.linked[candidate.ASIN] = true
		result.Added = append(result.Added, models.CompetitorLink{
			ComparisonID: comparisonID,
			ASIN:         candidate.ASIN,
			Position:     len(result.Added),
		})
	}
	return result, nil
}

func (s *stubComparisons) SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error {
	s.myProduct = asin
	return nil
}

func (s *stubComparisons) GetDetail(ctx context.Context, comparisonID uuid.UUID) (*comparison.Detail, error) {
	return &comparison.Detail{Comparison: s.comparison}, nil
}

type stubSuggestions struct {
	calls       int
	suggestions []suggestion.Suggestion
}

func (s *stubSuggestions) SuggestedCompetitors(ctx context.Context, canonical extraction.CanonicalProduct, limit int) ([]suggestion.Suggestion, error) {
	s.calls++
	if len(s.suggestions) > limit {
		return s.suggestions[:limit], nil
	}
	return s.suggestions, nil
}

type stubQueue struct {
	jobs []hydration.Job
}

func (q *stubQueue) Enqueue(ctx context.Context, job hydration.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Dequeue(ctx context.Context, timeout time.Duration) (*hydration.Job, error) {
	return nil, hydration.ErrEmptyQueue
}

func (q *stubQueue) Depth(ctx context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

type fixture struct {
	svc         Service
	fetcher     *stubFetcher
	catalog     *stubCatalog
	comparisons *stubComparisons
	suggestions *stubSuggestions
	queue       *stubQueue
}

func newFixture() *fixture {
	fetcher := &stubFetcher{products: map[string]*rainforest.RawProduct{}, errs: map[string]error{}}
	catalogSvc := &stubCatalog{failFor: map[string]error{}}
	comparisonsSvc := newStubComparisons()
	suggestionsSvc := &stubSuggestions{}
	queue := &stubQueue{}

	cfg := config.IngestConfig{
		MaxBatchASINs:  10,
		FetchWaveWidth: 3,
		FetchWaveDelay: time.Millisecond,
		SuggestLimit:   8,
	}

	return &fixture{
		svc:         NewService(fetcher, catalogSvc, comparisonsSvc, suggestionsSvc, queue, cfg, nil, nil),
		fetcher:     fetcher,
		catalog:     catalogSvc,
		comparisons: comparisonsSvc,
		suggestions: suggestionsSvc,
		queue:       queue,
	}
}

func rawFixture(asin string) *rainforest.RawProduct {
	return &rainforest.RawProduct{ASIN: asin, Title: "Widget " + asin}
}

func TestFetchProductImportsPrimary(t *testing.T) {
	f := newFixture()
	f.fetcher.products["B00X"] = rawFixture("B00X")
	f.suggestions.suggestions = []suggestion.Suggestion{{ASIN: "B001", Relation: enums.RelationAlsoViewed}}

	result, err := f.svc.FetchProduct(context.Background(), FetchInput{
		ASIN:        "b00x",
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, f.catalog.upserts, 1)
	call := f.catalog.upserts[0]
	assert.True(t, call.opts.IsMyProduct)
	require.NotNil(t, call.opts.ComparisonID)
	assert.Equal(t, f.comparisons.comparison.ID, *call.opts.ComparisonID)

	assert.Equal(t, "B00X", f.comparisons.myProduct)
	assert.Equal(t, 1, f.suggestions.calls)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "B00X", result.Product.ASIN)
}

func TestFetchProductSkipRelated(t *testing.T) {
	f := newFixture()
	f.fetcher.products["B00X"] = rawFixture("B00X")

	result, err := f.svc.FetchProduct(context.Background(), FetchInput{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
		SkipRelated: true,
	})
	require.NoError(t, err)
	assert.Zero(t, f.suggestions.calls)
	assert.Empty(t, result.Suggestions)
}

func TestFetchProductValidatesBeforeIO(t *testing.T) {
	f := newFixture()

	_, err := f.svc.FetchProduct(context.Background(), FetchInput{Marketplace: "amazon.com", FolderID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.FetchProduct(context.Background(), FetchInput{ASIN: "B00X", FolderID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.FetchProduct(context.Background(), FetchInput{ASIN: "B00X", Marketplace: "amazon.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Empty(t, f.fetcher.calls, "no upstream call on invalid input")
}

func TestFetchProductUpstreamNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.FetchProduct(context.Background(), FetchInput{
		ASIN:        "B0GONE",
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFetchMultiFirstSuccessBecomesPrimary(t *testing.T) {
	f := newFixture()
	for _, asin := range []string{"X1", "X2", "X3"} {
		f.fetcher.products[asin] = rawFixture(asin)
	}

	result, err := f.svc.FetchMulti(context.Background(), FetchMultiInput{
		ASINs:       []string{"X1", "X2", "X3"},
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err)

	require.NotNil(t, result.MyProduct)
	assert.Equal(t, "X1", result.MyProduct.ASIN)
	assert.Equal(t, "X1", f.comparisons.myProduct)
	require.Len(t, result.Competitors, 2)
	assert.Empty(t, result.Errors)

	require.Len(t, f.comparisons.appended, 1)
	batch := f.comparisons.appended[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "X2", batch[0].ASIN)
	assert.Equal(t, "X3", batch[1].ASIN)
}

func TestFetchMultiSkipsFailedPrimary(t *testing.T) {
	f := newFixture()
	f.fetcher.errs["X1"] = pkgerrors.New(pkgerrors.CodeNotFound, "no product found for ASIN X1")
	f.fetcher.products["X2"] = rawFixture("X2")
	f.fetcher.products["X3"] = rawFixture("X3")

	result, err := f.svc.FetchMulti(context.Background(), FetchMultiInput{
		ASINs:       []string{"X1", "X2", "X3"},
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err, "partial success is success")

	require.NotNil(t, result.MyProduct)
	assert.Equal(t, "X2", result.MyProduct.ASIN, "first successful ASIN in input order")
	require.Len(t, result.Competitors, 1)
	assert.Equal(t, "X3", result.Competitors[0].ASIN)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "X1", result.Errors[0].ASIN)
	assert.Equal(t, pkgerrors.CodeNotFound, result.Errors[0].Code)
}

func TestFetchMultiRejectsOversizedBatch(t *testing.T) {
	f := newFixture()
	asins := make([]string, 11)
	for i := range asins {
		asins[i] = "B" + string(rune('A'+i)) + "0"
	}

	_, err := f.svc.FetchMulti(context.Background(), FetchMultiInput{
		ASINs:       asins,
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.fetcher.calls)
}

func TestFetchMultiLinkFailureReportedPerItem(t *testing.T) {
	f := newFixture()
	for _, asin := range []string{"X1", "X2", "X3"} {
		f.fetcher.products[asin] = rawFixture(asin)
	}
	f.comparisons.appendErr = pkgerrors.New(pkgerrors.CodeConflict, "appending competitors kept colliding")

	result, err := f.svc.FetchMulti(context.Background(), FetchMultiInput{
		ASINs:       []string{"X1", "X2", "X3"},
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err, "saved products are not undone by a link failure")

	require.NotNil(t, result.MyProduct)
	require.Len(t, result.Competitors, 2)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "X2", result.Errors[0].ASIN)
	assert.Equal(t, "X3", result.Errors[1].ASIN)
	assert.Equal(t, pkgerrors.CodeConflict, result.Errors[0].Code)
}

func TestFetchMultiAllFailedReportsEveryItem(t *testing.T) {
	f := newFixture()
	f.fetcher.errs["X1"] = pkgerrors.New(pkgerrors.CodeDependency, "upstream down")
	f.fetcher.errs["X2"] = pkgerrors.New(pkgerrors.CodeDependency, "upstream down")

	result, err := f.svc.FetchMulti(context.Background(), FetchMultiInput{
		ASINs:       []string{"X1", "X2"},
		Marketplace: "amazon.com",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err)
	assert.Nil(t, result.MyProduct)
	assert.Len(t, result.Errors, 2)
}

func TestManualEntryRequiresEveryField(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ManualEntry(context.Background(), ManualInput{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		Title:       "Widget",
		// brand, price, currency, link, image, folder all missing
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.catalog.upserts, "validation happens before any write")
}

func TestManualEntryRequiresLink(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ManualEntry(context.Background(), ManualInput{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		Title:       "Widget",
		Brand:       "Acme",
		PriceAmount: decimal.NewFromFloat(19.99),
		Currency:    "USD",
		ImageURL:    "https://img/manual.jpg",
		FolderID:    uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.catalog.upserts)
}

func TestManualEntryWritesManualQualityRecord(t *testing.T) {
	f := newFixture()

	result, err := f.svc.ManualEntry(context.Background(), ManualInput{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		Title:       "Widget",
		Brand:       "Acme",
		PriceAmount: decimal.NewFromFloat(19.99),
		Currency:    "USD",
		Link:        "https://amazon.com/dp/B00X",
		ImageURL:    "https://img/manual.jpg",
		FolderID:    uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, f.catalog.upserts, 1)
	call := f.catalog.upserts[0]
	assert.Equal(t, enums.DataQualityManual, call.canonical.DataQuality)
	assert.True(t, call.opts.IsMyProduct)
	require.NotNil(t, call.canonical.Link)
	assert.Equal(t, "https://amazon.com/dp/B00X", *call.canonical.Link)
	require.NotNil(t, call.canonical.Images.MainImageURL)
	assert.Equal(t, "https://img/manual.jpg", *call.canonical.Images.MainImageURL)
	assert.Empty(t, f.fetcher.calls, "manual entry never touches the upstream API")
	assert.NotNil(t, result.Comparison)
}

func TestAppendCompetitorsBackgroundEnqueues(t *testing.T) {
	f := newFixture()

	outcome, err := f.svc.AppendCompetitors(context.Background(), AppendInput{
		ComparisonID:      f.comparisons.comparison.ID,
		ASINs:             []string{"B001", "B002"},
		FetchInBackground: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Added)
	assert.Equal(t, 2, outcome.Enqueued)
	assert.Zero(t, outcome.Hydrated)
	require.Len(t, f.queue.jobs, 2)
	assert.Equal(t, "B001", f.queue.jobs[0].ASIN)
	assert.Equal(t, "amazon.com", f.queue.jobs[0].Marketplace)
	assert.Empty(t, f.fetcher.calls)
}

func TestAppendCompetitorsSyncHydrates(t *testing.T) {
	f := newFixture()
	f.fetcher.products["B001"] = rawFixture("B001")
	f.fetcher.errs["B002"] = pkgerrors.New(pkgerrors.CodeDependency, "upstream down")

	outcome, err := f.svc.AppendCompetitors(context.Background(), AppendInput{
		ComparisonID: f.comparisons.comparison.ID,
		ASINs:        []string{"B001", "B002"},
	})
	require.NoError(t, err, "per-asin hydrate failures do not abort the batch")

	assert.Equal(t, 2, outcome.Added)
	assert.Equal(t, 1, outcome.Hydrated)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "B002", outcome.Errors[0].ASIN)
	assert.Empty(t, f.queue.jobs)
}

func TestAppendCompetitorsCarriesMatchScores(t *testing.T) {
	f := newFixture()
	f.comparisons.linked["B000"] = true
	score := 0.87

	outcome, err := f.svc.AppendCompetitors(context.Background(), AppendInput{
		ComparisonID:      f.comparisons.comparison.ID,
		ASINs:             []string{"b001", "B002"},
		Metadata:          []CompetitorMetadata{{ASIN: "B001", MatchScore: &score}},
		FetchInBackground: true,
	})
	require.NoError(t, err)

	require.Len(t, f.comparisons.appended, 1)
	batch := f.comparisons.appended[0]
	require.Len(t, batch, 2)
	require.NotNil(t, batch[0].MatchScore, "score keyed by normalized asin")
	assert.Equal(t, score, *batch[0].MatchScore)
	assert.Nil(t, batch[1].MatchScore)
	assert.Equal(t, 1, outcome.Existing)
}

func TestAppendCompetitorsAllDuplicates(t *testing.T) {
	f := newFixture()
	f.comparisons.linked["B001"] = true

	outcome, err := f.svc.AppendCompetitors(context.Background(), AppendInput{
		ComparisonID: f.comparisons.comparison.ID,
		ASINs:        []string{"B001"},
	})
	require.NoError(t, err)
	assert.Zero(t, outcome.Added)
	assert.Equal(t, 1, outcome.DuplicatesSkipped)
	assert.Empty(t, f.fetcher.calls, "nothing to hydrate")
}

func TestSearchPassthroughValidation(t *testing.T) {
	f := newFixture()
	f.fetcher.results = []rainforest.SearchResult{{ASIN: "B001"}}

	_, err := f.svc.Search(context.Background(), "  ", "amazon.com")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	results, err := f.svc.Search(context.Background(), "earbuds", "amazon.com")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, f.fetcher.searches)
}
