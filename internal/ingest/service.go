package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	comparison "github.com/dariomedina/shelfrival-backend/internal/comparisons"
	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/internal/hydration"
	suggestion "github.com/dariomedina/shelfrival-backend/internal/suggestions"
	"github.com/dariomedina/shelfrival-backend/pkg/config"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/metrics"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

// Fetcher is the upstream client surface the import flows need.
type Fetcher interface {
	GetProduct(ctx context.Context, asin, amazonDomain string) (*rainforest.RawProduct, error)
	Search(ctx context.Context, term, amazonDomain string) ([]rainforest.SearchResult, error)
}

// Service orchestrates the four import flows.
type Service interface {
	FetchProduct(ctx context.Context, in FetchInput) (*FetchResult, error)
	FetchMulti(ctx context.Context, in FetchMultiInput) (*FetchMultiResult, error)
	ManualEntry(ctx context.Context, in ManualInput) (*ManualResult, error)
	AppendCompetitors(ctx context.Context, in AppendInput) (*AppendOutcome, error)
	Search(ctx context.Context, term, marketplace string) ([]rainforest.SearchResult, error)
}

// FetchInput drives the single-ASIN import flow.
type FetchInput struct {
	ASIN        string
	Marketplace string
	FolderID    uuid.UUID
	FolderName  string
	SkipRelated bool
	RequestedBy *string
}

// FetchResult is the single-ASIN flow's outcome.
type FetchResult struct {
	Product     *models.Product
	Comparison  *models.Comparison
	Suggestions []suggestion.Suggestion
	Videos      catalog.VideoResult
}

// FetchMultiInput drives the multi-ASIN import flow.
type FetchMultiInput struct {
	ASINs       []string
	Marketplace string
	FolderID    uuid.UUID
	FolderName  string
	RequestedBy *string
}

// ItemError reports one ASIN's failure inside a partially successful batch.
type ItemError struct {
	ASIN    string         `json:"asin"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// FetchMultiResult is the multi-ASIN flow's outcome. A batch with at least
// one imported product is a success; Errors carries the rest.
type FetchMultiResult struct {
	Comparison  *models.Comparison
	MyProduct   *models.Product
	Competitors []models.Product
	Errors      []ItemError
}

// ManualInput is a hand-entered product. Every field is required; manual
// entries bypass the upstream API entirely.
type ManualInput struct {
	ASIN        string
	Marketplace string
	Title       string
	Brand       string
	PriceAmount decimal.Decimal
	Currency    string
	Link        string
	ImageURL    string
	FolderID    uuid.UUID
	FolderName  string
	RequestedBy *string
}

// ManualResult is the manual flow's outcome.
type ManualResult struct {
	Product    *models.Product
	Comparison *models.Comparison
}

// AppendInput adds competitors to an existing comparison and hydrates their
// product data, either inline or through the background queue.
type AppendInput struct {
	ComparisonID      uuid.UUID
	ASINs             []string
	Metadata          []CompetitorMetadata
	AddedBy           *string
	FetchInBackground bool
}

// CompetitorMetadata carries optional per-ASIN scoring supplied alongside an
// append, matched to the ASIN list by identifier.
type CompetitorMetadata struct {
	ASIN       string
	MatchScore *float64
}

// AppendOutcome reports what an append changed and how hydration went.
// Existing counts the links that were already on the comparison beforehand.
type AppendOutcome struct {
	Added             int
	Existing          int
	DuplicatesSkipped int
	Hydrated          int
	Enqueued          int
	Errors            []ItemError
}

type service struct {
	fetcher     Fetcher
	catalog     catalog.Service
	comparisons comparison.Service
	suggestions suggestion.Service
	queue       hydration.Queue
	cfg         config.IngestConfig
	metrics     *metrics.IngestMetrics
	logg        *logger.Logger
}

// NewService wires the ingest orchestrator.
func NewService(
	fetcher Fetcher,
	catalogSvc catalog.Service,
	comparisonSvc comparison.Service,
	suggestionSvc suggestion.Service,
	queue hydration.Queue,
	cfg config.IngestConfig,
	m *metrics.IngestMetrics,
	logg *logger.Logger,
) Service {
	return &service{
		fetcher:     fetcher,
		catalog:     catalogSvc,
		comparisons: comparisonSvc,
		suggestions: suggestionSvc,
		queue:       queue,
		cfg:         cfg,
		metrics:     m,
		logg:        logg,
	}
}

// FetchProduct imports one ASIN as the folder's primary product and proposes
// competitors for it.
func (s *service) FetchProduct(ctx context.Context, in FetchInput) (*FetchResult, error) {
	asin := normalizeASIN(in.ASIN)
	if asin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	if strings.TrimSpace(in.Marketplace) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace is required")
	}
	if in.FolderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder id is required")
	}

	raw, err := s.fetchOne(ctx, "fetch_product", asin, in.Marketplace)
	if err != nil {
		return nil, err
	}
	canonical := extraction.Normalize(raw, in.Marketplace)
	if canonical.ASIN == "" {
		canonical.ASIN = asin
	}

	comp, err := s.comparisons.EnsureComparison(ctx, comparison.EnsureInput{
		FolderID:    in.FolderID,
		Marketplace: in.Marketplace,
		Name:        in.FolderName,
		CreatedBy:   in.RequestedBy,
	})
	if err != nil {
		return nil, err
	}

	product, videos, err := s.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{
		IsMyProduct:  true,
		ComparisonID: &comp.ID,
	})
	if err != nil {
		return nil, err
	}
	s.countVideos(videos)

	if err := s.comparisons.SetMyProduct(ctx, comp.ID, canonical.ASIN); err != nil {
		return nil, err
	}

	result := &FetchResult{Product: product, Comparison: comp, Videos: videos}
	if !in.SkipRelated {
		suggestions, err := s.suggestions.SuggestedCompetitors(ctx, canonical, s.suggestLimit())
		if err != nil {
			// Suggestions are advisory; the import already succeeded.
			if s.logg != nil {
				s.logg.Warn(s.logg.WithASIN(ctx, asin), "competitor suggestions unavailable")
			}
		} else {
			result.Suggestions = suggestions
		}
	}
	return result, nil
}

// FetchMulti imports up to the batch limit of ASINs in fixed-width waves.
// The first ASIN in input order that fetched successfully becomes the
// primary; the rest become competitors. Per-ASIN failures are reported, not
// fatal.
func (s *service) FetchMulti(ctx context.Context, in FetchMultiInput) (*FetchMultiResult, error) {
	if strings.TrimSpace(in.Marketplace) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace is required")
	}
	if in.FolderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder id is required")
	}

	asins := normalizeASINBatch(in.ASINs)
	if len(asins) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one asin is required")
	}
	if max := s.maxBatch(); len(asins) > max {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many asins in one batch").
			WithDetails(map[string]any{"max": max, "got": len(asins)})
	}

	outcomes := s.fetchInWaves(ctx, "fetch_multi", asins, in.Marketplace)

	result := &FetchMultiResult{}
	var competitorASINs []comparison.Candidate
	for _, outcome := range outcomes {
		if outcome.err != nil {
			result.Errors = append(result.Errors, itemError(outcome.asin, outcome.err))
			continue
		}

		canonical := extraction.Normalize(outcome.raw, in.Marketplace)
		if canonical.ASIN == "" {
			canonical.ASIN = outcome.asin
		}

		if result.MyProduct == nil {
			comp, err := s.comparisons.EnsureComparison(ctx, comparison.EnsureInput{
				FolderID:    in.FolderID,
				Marketplace: in.Marketplace,
				Name:        in.FolderName,
				CreatedBy:   in.RequestedBy,
			})
			if err != nil {
				return nil, err
			}
			result.Comparison = comp

			product, videos, err := s.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{
				IsMyProduct:  true,
				ComparisonID: &comp.ID,
			})
			if err != nil {
				result.Errors = append(result.Errors, itemError(outcome.asin, err))
				result.Comparison = nil
				continue
			}
			s.countVideos(videos)

			if err := s.comparisons.SetMyProduct(ctx, comp.ID, canonical.ASIN); err != nil {
				return nil, err
			}
			result.MyProduct = product
			continue
		}

		product, videos, err := s.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{
			ComparisonID: &result.Comparison.ID,
		})
		if err != nil {
			result.Errors = append(result.Errors, itemError(outcome.asin, err))
			continue
		}
		s.countVideos(videos)
		result.Competitors = append(result.Competitors, *product)
		competitorASINs = append(competitorASINs, comparison.Candidate{ASIN: canonical.ASIN})
	}

	if len(competitorASINs) > 0 {
		if _, err := s.comparisons.AppendCompetitors(ctx, result.Comparison.ID, competitorASINs, comparison.AppendMeta{AddedBy: in.RequestedBy}); err != nil {
			// The products are already saved; surface the link failure per item.
			for _, candidate := range competitorASINs {
				result.Errors = append(result.Errors, itemError(candidate.ASIN, err))
			}
		}
	}
	return result, nil
}

// ManualEntry writes a hand-entered product without touching the upstream
// API. Validation happens before any I/O.
func (s *service) ManualEntry(ctx context.Context, in ManualInput) (*ManualResult, error) {
	missing := []string{}
	if normalizeASIN(in.ASIN) == "" {
		missing = append(missing, "asin")
	}
	if strings.TrimSpace(in.Marketplace) == "" {
		missing = append(missing, "marketplace")
	}
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Brand) == "" {
		missing = append(missing, "brand")
	}
	if in.PriceAmount.LessThanOrEqual(decimal.Zero) {
		missing = append(missing, "price_amount")
	}
	if strings.TrimSpace(in.Currency) == "" {
		missing = append(missing, "currency")
	}
	if strings.TrimSpace(in.Link) == "" {
		missing = append(missing, "link")
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		missing = append(missing, "image_url")
	}
	if in.FolderID == uuid.Nil {
		missing = append(missing, "folder_id")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manual entry requires every field").
			WithDetails(map[string]any{"missing": missing})
	}

	comp, err := s.comparisons.EnsureComparison(ctx, comparison.EnsureInput{
		FolderID:    in.FolderID,
		Marketplace: in.Marketplace,
		Name:        in.FolderName,
		CreatedBy:   in.RequestedBy,
	})
	if err != nil {
		return nil, err
	}

	canonical := manualCanonical(in)
	product, _, err := s.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{
		IsMyProduct:  true,
		ComparisonID: &comp.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.comparisons.SetMyProduct(ctx, comp.ID, canonical.ASIN); err != nil {
		return nil, err
	}
	return &ManualResult{Product: product, Comparison: comp}, nil
}

// AppendCompetitors reconciles the links first, then hydrates product data
// for the links that actually landed. Hydration failures never undo a link.
func (s *service) AppendCompetitors(ctx context.Context, in AppendInput) (*AppendOutcome, error) {
	if in.ComparisonID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comparison id is required")
	}

	scores := make(map[string]*float64, len(in.Metadata))
	for _, meta := range in.Metadata {
		if asin := normalizeASIN(meta.ASIN); asin != "" && meta.MatchScore != nil {
			scores[asin] = meta.MatchScore
		}
	}

	candidates := make([]comparison.Candidate, 0, len(in.ASINs))
	for _, asin := range in.ASINs {
		candidates = append(candidates, comparison.Candidate{ASIN: asin, MatchScore: scores[normalizeASIN(asin)]})
	}

	appended, err := s.comparisons.AppendCompetitors(ctx, in.ComparisonID, candidates, comparison.AppendMeta{AddedBy: in.AddedBy})
	if err != nil {
		return nil, err
	}

	outcome := &AppendOutcome{
		Added:             len(appended.Added),
		Existing:          appended.ExistingCount,
		DuplicatesSkipped: appended.DuplicatesSkipped,
	}
	if len(appended.Added) == 0 {
		return outcome, nil
	}

	detail, err := s.comparisons.GetDetail(ctx, in.ComparisonID)
	if err != nil {
		return nil, err
	}
	marketplace := detail.Comparison.Marketplace

	if in.FetchInBackground {
		for _, link := range appended.Added {
			job := hydration.Job{ComparisonID: in.ComparisonID, ASIN: link.ASIN, Marketplace: marketplace}
			if err := s.queue.Enqueue(ctx, job); err != nil {
				outcome.Errors = append(outcome.Errors, itemError(link.ASIN, err))
				continue
			}
			outcome.Enqueued++
		}
		return outcome, nil
	}

	asins := make([]string, 0, len(appended.Added))
	for _, link := range appended.Added {
		asins = append(asins, link.ASIN)
	}
	for _, fetched := range s.fetchInWaves(ctx, "append_competitors", asins, marketplace) {
		if fetched.err != nil {
			outcome.Errors = append(outcome.Errors, itemError(fetched.asin, fetched.err))
			continue
		}
		canonical := extraction.Normalize(fetched.raw, marketplace)
		if canonical.ASIN == "" {
			canonical.ASIN = fetched.asin
		}
		comparisonID := in.ComparisonID
		_, videos, err := s.catalog.UpsertProduct(ctx, canonical, catalog.UpsertOptions{ComparisonID: &comparisonID})
		if err != nil {
			outcome.Errors = append(outcome.Errors, itemError(fetched.asin, err))
			continue
		}
		s.countVideos(videos)
		outcome.Hydrated++
	}
	return outcome, nil
}

// Search passes a keyword query through to the upstream API for the search
// import flow.
func (s *service) Search(ctx context.Context, term, marketplace string) ([]rainforest.SearchResult, error) {
	if strings.TrimSpace(term) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search term is required")
	}
	if strings.TrimSpace(marketplace) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace is required")
	}
	return s.fetcher.Search(ctx, term, marketplace)
}

type fetchOutcome struct {
	asin string
	raw  *rainforest.RawProduct
	err  error
}

// fetchInWaves fetches the batch in fixed-width concurrent waves with a
// pause between them, preserving input order in the result.
func (s *service) fetchInWaves(ctx context.Context, operation string, asins []string, marketplace string) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(asins))
	width := s.waveWidth()

	for start := 0; start < len(asins); start += width {
		end := start + width
		if end > len(asins) {
			end = len(asins)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				raw, err := s.fetchOne(ctx, operation, asins[slot], marketplace)
				outcomes[slot] = fetchOutcome{asin: asins[slot], raw: raw, err: err}
			}(i)
		}
		wg.Wait()

		if end < len(asins) && s.cfg.FetchWaveDelay > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(asins); i++ {
					outcomes[i] = fetchOutcome{asin: asins[i], err: pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "batch canceled")}
				}
				return outcomes
			case <-time.After(s.cfg.FetchWaveDelay):
			}
		}
	}
	return outcomes
}

func (s *service) fetchOne(ctx context.Context, operation, asin, marketplace string) (*rainforest.RawProduct, error) {
	start := time.Now()
	raw, err := s.fetcher.GetProduct(ctx, asin, marketplace)
	s.metrics.ObserveFetch(operation, time.Since(start))
	if err != nil {
		s.metrics.IncFetchFailure(operation)
		return nil, err
	}
	s.metrics.IncFetchSuccess(operation)
	return raw, nil
}

func (s *service) countVideos(videos catalog.VideoResult) {
	s.metrics.AddVideosFailed(videos.Failed)
	s.metrics.AddVideosSkipped(videos.Skipped)
}

func (s *service) suggestLimit() int {
	if s.cfg.SuggestLimit > 0 {
		return s.cfg.SuggestLimit
	}
	return 8
}

func (s *service) maxBatch() int {
	if s.cfg.MaxBatchASINs > 0 {
		return s.cfg.MaxBatchASINs
	}
	return 10
}

func (s *service) waveWidth() int {
	if s.cfg.FetchWaveWidth > 0 {
		return s.cfg.FetchWaveWidth
	}
	return 3
}

func manualCanonical(in ManualInput) extraction.CanonicalProduct {
	asin := normalizeASIN(in.ASIN)
	brand := strings.TrimSpace(in.Brand)
	currency := strings.TrimSpace(in.Currency)
	link := strings.TrimSpace(in.Link)
	imageURL := strings.TrimSpace(in.ImageURL)
	price := in.PriceAmount

	return extraction.CanonicalProduct{
		ASIN:        asin,
		Marketplace: strings.TrimSpace(in.Marketplace),
		Title:       strings.TrimSpace(in.Title),
		Brand:       &brand,
		Link:        &link,
		PriceAmount: &price,
		Currency:    &currency,
		Images: extraction.ImageSet{
			MainImageURL: &imageURL,
			Entries:      []extraction.Image{{URL: imageURL}},
			Count:        1,
		},
		DataQuality: enums.DataQualityManual,
	}
}

func itemError(asin string, err error) ItemError {
	if typed := pkgerrors.As(err); typed != nil {
		return ItemError{ASIN: asin, Code: typed.Code(), Message: typed.Message()}
	}
	return ItemError{ASIN: asin, Code: pkgerrors.CodeInternal, Message: err.Error()}
}

func normalizeASIN(asin string) string {
	return strings.ToUpper(strings.TrimSpace(asin))
}

func normalizeASINBatch(asins []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, asin := range asins {
		normalized := normalizeASIN(asin)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
