package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/pkg/db"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
)

// Service exposes product persistence operations over canonical products.
type Service interface {
	UpsertProduct(ctx context.Context, canonical extraction.CanonicalProduct, opts UpsertOptions) (*models.Product, VideoResult, error)
	GetProduct(ctx context.Context, asin, marketplace string) (*models.Product, error)
	ListByComparison(ctx context.Context, comparisonID uuid.UUID) ([]models.Product, error)
	Detach(ctx context.Context, asin, marketplace string) error
	SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error
}

// UpsertOptions attaches comparison context to an upsert.
type UpsertOptions struct {
	IsMyProduct  bool
	ComparisonID *uuid.UUID
}

type service struct {
	repo   Repository
	client *db.Client
	logg   *logger.Logger
}

// NewService wires the catalog service.
func NewService(repo Repository, client *db.Client, logg *logger.Logger) Service {
	return &service{repo: repo, client: client, logg: logg}
}

// UpsertProduct writes one canonical product keyed on (asin, marketplace).
// A re-fetch updates the existing row in place, replaces the image gallery
// wholesale, and re-inserts videos with per-row insert-or-ignore. The product
// and image writes share one transaction; videos land after it commits, so a
// video failure is collected into the returned VideoResult and can never roll
// back the product save.
func (s *service) UpsertProduct(ctx context.Context, canonical extraction.CanonicalProduct, opts UpsertOptions) (*models.Product, VideoResult, error) {
	if canonical.ASIN == "" {
		return nil, VideoResult{}, pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	if canonical.Marketplace == "" {
		return nil, VideoResult{}, pkgerrors.New(pkgerrors.CodeValidation, "marketplace is required")
	}
	if canonical.Title == "" {
		return nil, VideoResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s has no title", canonical.ASIN))
	}

	var saved *models.Product

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product := buildProduct(canonical, opts)
		existing, err := repo.GetByASIN(ctx, canonical.ASIN, canonical.Marketplace)
		switch {
		case err == nil:
			product.ID = existing.ID
			product.CreatedAt = existing.CreatedAt
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			// first sighting of this listing
		default:
			return err
		}

		saved, err = repo.Save(ctx, product)
		if err != nil {
			return err
		}

		return repo.ReplaceImages(ctx, saved.ID, buildImageRows(canonical.Images))
	})
	if err != nil {
		return nil, VideoResult{}, err
	}

	videoResult := s.repo.ReplaceVideos(ctx, saved.ID, buildVideoRows(canonical.Videos))

	if videoResult.Err != nil && s.logg != nil {
		logCtx := s.logg.WithASIN(ctx, canonical.ASIN)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"videos_inserted": videoResult.Inserted,
			"videos_skipped":  videoResult.Skipped,
			"videos_failed":   videoResult.Failed,
		})
		s.logg.Warn(logCtx, "some product videos failed to persist")
	}

	return saved, videoResult, nil
}

func (s *service) GetProduct(ctx context.Context, asin, marketplace string) (*models.Product, error) {
	if asin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	return s.repo.GetByASIN(ctx, asin, marketplace)
}

func (s *service) ListByComparison(ctx context.Context, comparisonID uuid.UUID) ([]models.Product, error) {
	return s.repo.ListByComparison(ctx, comparisonID)
}

func (s *service) Detach(ctx context.Context, asin, marketplace string) error {
	if asin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	return s.repo.Detach(ctx, asin, marketplace)
}

func (s *service) SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error {
	if asin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "asin is required")
	}
	return s.repo.SetMyProduct(ctx, comparisonID, asin)
}

func buildProduct(canonical extraction.CanonicalProduct, opts UpsertOptions) *models.Product {
	return &models.Product{
		ASIN:        canonical.ASIN,
		Marketplace: canonical.Marketplace,
		Title:       canonical.Title,
		Brand:       canonical.Brand,
		Link:        canonical.Link,

		PriceAmount:     canonical.PriceAmount,
		Currency:        canonical.Currency,
		PriceRaw:        canonical.PriceRaw,
		DiscountPercent: canonical.DiscountPercent,
		CouponText:      canonical.CouponText,

		Rating:          canonical.Rating,
		RatingsTotal:    canonical.RatingsTotal,
		RatingBreakdown: canonical.RatingBreakdown,

		Categories:         pq.StringArray(canonical.Categories),
		BestsellerRank:     canonical.BestsellerRank,
		BestsellerCategory: canonical.BestsellerCategory,

		MainImageURL: canonical.Images.MainImageURL,
		ImageURLs:    pq.StringArray(canonical.Images.URLs()),
		ImagesCount:  canonical.Images.Count,
		HasVideo:     len(canonical.Videos) > 0,

		FeatureBullets: pq.StringArray(canonical.FeatureBullets),
		Description:    canonical.Description,
		Specifications: canonical.Specifications,

		InStock:         canonical.InStock,
		AvailabilityRaw: canonical.AvailabilityRaw,
		SellerName:      canonical.SellerName,

		HasAplus:     canonical.HasAplus,
		AplusPayload: canonical.AplusPayload,

		RawPayload:  canonical.RawPayload,
		DataQuality: dataQualityOrDefault(canonical.DataQuality),

		IsMyProduct:  opts.IsMyProduct,
		ComparisonID: opts.ComparisonID,

		FetchedAt: time.Now().UTC(),
	}
}

func dataQualityOrDefault(quality enums.DataQuality) enums.DataQuality {
	if quality.IsValid() {
		return quality
	}
	return enums.DataQualityFull
}

func buildImageRows(set extraction.ImageSet) []models.ProductImage {
	rows := make([]models.ProductImage, 0, len(set.Entries))
	for i, entry := range set.Entries {
		rows = append(rows, models.ProductImage{
			URL:      entry.URL,
			Variant:  entry.Variant,
			Position: i,
			Width:    entry.Width,
			Height:   entry.Height,
		})
	}
	return rows
}

func buildVideoRows(videos []extraction.Video) []models.ProductVideo {
	rows := make([]models.ProductVideo, 0, len(videos))
	for _, video := range videos {
		rows = append(rows, models.ProductVideo{
			ExternalID:      video.ExternalID,
			Title:           video.Title,
			ThumbnailURL:    video.ThumbnailURL,
			URL:             video.URL,
			DurationSeconds: video.DurationSeconds,
			CreatorType:     video.CreatorType,
			CreatorName:     video.CreatorName,
			Kind:            video.Kind,
			Captions:        video.Captions,
			SourceField:     video.SourceField,
		})
	}
	return rows
}
