package comparison

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/dariomedina/shelfrival-backend/pkg/db"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
)

// Service exposes comparison reconciliation operations.
type Service interface {
	EnsureComparison(ctx context.Context, in EnsureInput) (*models.Comparison, error)
	AppendCompetitors(ctx context.Context, comparisonID uuid.UUID, candidates []Candidate, meta AppendMeta) (*AppendResult, error)
	SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error
	GetDetail(ctx context.Context, comparisonID uuid.UUID) (*Detail, error)
}

// ProductFlagger flips the my-product flag on the products attached to a
// comparison. Satisfied by the catalog service.
type ProductFlagger interface {
	SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error
}

// EnsureInput identifies the comparison to get or create for a folder.
type EnsureInput struct {
	FolderID    uuid.UUID
	Marketplace string
	Name        string
	CreatedBy   *string
}

// Candidate is one ASIN proposed for a comparison's competitor list.
type Candidate struct {
	ASIN       string
	MatchScore *float64
}

// AppendMeta carries attribution for appended links.
type AppendMeta struct {
	AddedBy *string
}

// AppendResult reports what one append actually changed. ExistingCount is
// the number of links the comparison held before this append.
type AppendResult struct {
	Added             []models.CompetitorLink
	ExistingCount     int
	DuplicatesSkipped int
	BasePosition      int
}

// Detail is the comparison with its ordered competitor links.
type Detail struct {
	Comparison *models.Comparison
	Links      []models.CompetitorLink
}

const (
	appendMaxRetries   = 3
	appendRetryBackoff = 25 * time.Millisecond
)

type service struct {
	repo     Repository
	client   *db.Client
	products ProductFlagger
	logg     *logger.Logger
}

// NewService wires the comparison service.
func NewService(repo Repository, client *db.Client, products ProductFlagger, logg *logger.Logger) Service {
	return &service{repo: repo, client: client, products: products, logg: logg}
}

// EnsureComparison returns the folder's comparison, creating it if the folder
// has none yet. The unique index on folder_id keeps it at one per folder;
// losing the create race just means reading the winner's row.
func (s *service) EnsureComparison(ctx context.Context, in EnsureInput) (*models.Comparison, error) {
	if in.FolderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder id is required")
	}
	if strings.TrimSpace(in.Marketplace) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace is required")
	}

	existing, err := s.repo.GetByFolder(ctx, in.FolderID)
	if err == nil {
		return existing, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Comparison"
	}

	created, createErr := s.repo.Create(ctx, &models.Comparison{
		FolderID:    in.FolderID,
		Name:        name,
		Marketplace: in.Marketplace,
		Status:      enums.ComparisonStatusDraft,
		CreatedBy:   in.CreatedBy,
	})
	if createErr == nil {
		return created, nil
	}
	if db.IsUniqueViolation(createErr) {
		return s.repo.GetByFolder(ctx, in.FolderID)
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "creating comparison")
}

// AppendCompetitors adds candidate ASINs to the end of the competitor list.
// Already-linked ASINs and in-batch repeats are skipped, never re-ordered or
// re-positioned; positions continue from max(position)+1. Two appends racing
// for the same slots trip the unique (comparison_id, position) index and the
// loser retries against the fresh snapshot.
func (s *service) AppendCompetitors(ctx context.Context, comparisonID uuid.UUID, candidates []Candidate, meta AppendMeta) (*AppendResult, error) {
	if len(candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate asin is required")
	}

	normalized := make([]Candidate, 0, len(candidates))
	inBatch := map[string]bool{}
	duplicatesInBatch := 0
	for _, candidate := range candidates {
		asin := strings.ToUpper(strings.TrimSpace(candidate.ASIN))
		if asin == "" {
			continue
		}
		if inBatch[asin] {
			duplicatesInBatch++
			continue
		}
		inBatch[asin] = true
		candidate.ASIN = asin
		normalized = append(normalized, candidate)
	}
	if len(normalized) == 0 && duplicatesInBatch == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate asin is required")
	}

	var result *AppendResult
	backoff := retry.WithMaxRetries(appendMaxRetries, retry.NewFibonacci(appendRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			appended, err := s.appendInTx(ctx, tx, comparisonID, normalized, meta)
			if err != nil {
				return err
			}
			result = appended
			return nil
		})
		if db.IsUniqueViolation(txErr) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithComparisonID(ctx, comparisonID.String()), "position collision on append, retrying")
			}
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "appending competitors kept colliding")
		}
		return nil, err
	}

	result.DuplicatesSkipped += duplicatesInBatch
	return result, nil
}

func (s *service) appendInTx(ctx context.Context, tx *gorm.DB, comparisonID uuid.UUID, candidates []Candidate, meta AppendMeta) (*AppendResult, error) {
	repo := s.repo.WithTx(tx)

	if _, err := repo.Get(ctx, comparisonID); err != nil {
		return nil, err
	}

	links, err := repo.ListLinks(ctx, comparisonID)
	if err != nil {
		return nil, err
	}

	linked := make(map[string]bool, len(links))
	maxPosition := -1
	for _, link := range links {
		linked[link.ASIN] = true
		if link.Position > maxPosition {
			maxPosition = link.Position
		}
	}
	base := maxPosition + 1

	result := &AppendResult{BasePosition: base, ExistingCount: len(links)}
	var fresh []models.CompetitorLink
	for _, candidate := range candidates {
		if linked[candidate.ASIN] {
			result.DuplicatesSkipped++
			continue
		}
		fresh = append(fresh, models.CompetitorLink{
			ComparisonID: comparisonID,
			ASIN:         candidate.ASIN,
			Position:     base + len(fresh),
			Visible:      true,
			MatchScore:   candidate.MatchScore,
			AddedBy:      meta.AddedBy,
		})
	}

	// Everything already linked: a clean no-op, not an error.
	if len(fresh) == 0 {
		return result, nil
	}

	if err := repo.CreateLinks(ctx, fresh); err != nil {
		return nil, err
	}
	result.Added = fresh
	return result, nil
}

// SetMyProduct records the comparison's primary ASIN and flips the my-product
// flag across the comparison's products.
func (s *service) SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	if asin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	if err := s.repo.UpdateMyProductASIN(ctx, comparisonID, asin); err != nil {
		return err
	}
	if s.products != nil {
		return s.products.SetMyProduct(ctx, comparisonID, asin)
	}
	return nil
}

func (s *service) GetDetail(ctx context.Context, comparisonID uuid.UUID) (*Detail, error) {
	comparison, err := s.repo.Get(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinks(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	return &Detail{Comparison: comparison, Links: links}, nil
}
