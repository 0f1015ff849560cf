package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
)

// Repository defines persistence operations for products and their media.
type Repository interface {
	GetByASIN(ctx context.Context, asin, marketplace string) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Save(ctx context.Context, product *models.Product) (*models.Product, error)
	ReplaceImages(ctx context.Context, productID uuid.UUID, images []models.ProductImage) error
	ReplaceVideos(ctx context.Context, productID uuid.UUID, videos []models.ProductVideo) VideoResult
	ListByComparison(ctx context.Context, comparisonID uuid.UUID) ([]models.Product, error)
	Detach(ctx context.Context, asin, marketplace string) error
	SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error
	WithTx(tx *gorm.DB) Repository
}

// VideoResult reports the per-row outcome of a video replacement. Failures
// here never fail the surrounding product save; Err aggregates them for
// logging and metrics.
type VideoResult struct {
	Inserted int
	Skipped  int
	Failed   int
	Err      error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed product repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) GetByASIN(ctx context.Context, asin, marketplace string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("asin = ? AND marketplace = ?", asin, marketplace).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", asin))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching product")
	}
	return &product, nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching product")
	}
	return &product, nil
}

func (r *gormRepository) Save(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
		if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
		}
		return product, nil
	}

	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return product, nil
}

// ReplaceImages swaps the full gallery: the old rows go away and the new set
// lands with dense positions assigned by the caller.
func (r *gormRepository) ReplaceImages(ctx context.Context, productID uuid.UUID, images []models.ProductImage) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product images")
	}
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		if images[i].ID == uuid.Nil {
			images[i].ID = uuid.New()
		}
		images[i].ProductID = productID
	}
	if err := tx.Create(&images).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting product images")
	}
	return nil
}

// ReplaceVideos deletes the existing set, then inserts row by row with
// insert-or-ignore. The same video can appear under both upstream payload
// fields, so conflicts on (product_id, external_id) are expected and counted
// as skips. Nothing here returns a hard error: a failed delete or insert is
// folded into the result so the caller's product save stands regardless.
func (r *gormRepository) ReplaceVideos(ctx context.Context, productID uuid.UUID, videos []models.ProductVideo) VideoResult {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVideo{}).Error; err != nil {
		return VideoResult{
			Failed: len(videos),
			Err:    pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product videos"),
		}
	}

	var result VideoResult
	for i := range videos {
		video := videos[i]
		if video.ID == uuid.Nil {
			video.ID = uuid.New()
		}
		video.ProductID = productID

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&video)
		if res.Error != nil {
			result.Failed++
			result.Err = multierr.Append(result.Err, fmt.Errorf("video %s: %w", video.ExternalID, res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			result.Skipped++
			continue
		}
		result.Inserted++
	}
	return result
}

func (r *gormRepository) ListByComparison(ctx context.Context, comparisonID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Videos").
		Where("comparison_id = ?", comparisonID).
		Order("created_at ASC").
		Find(&products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing comparison products")
	}
	return products, nil
}

// Detach clears the comparison reference instead of deleting a product that
// a comparison still points at.
func (r *gormRepository) Detach(ctx context.Context, asin, marketplace string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("asin = ? AND marketplace = ?", asin, marketplace).
		Updates(map[string]any{"comparison_id": nil, "is_my_product": false})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "detaching product")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", asin))
	}
	return nil
}

// SetMyProduct flips the my-product flag to exactly one ASIN within a
// comparison's products.
func (r *gormRepository) SetMyProduct(ctx context.Context, comparisonID uuid.UUID, asin string) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.Product{}).
		Where("comparison_id = ? AND is_my_product = ?", comparisonID, true).
		Update("is_my_product", false).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing my-product flag")
	}
	if err := tx.Model(&models.Product{}).
		Where("comparison_id = ? AND asin = ?", comparisonID, asin).
		Update("is_my_product", true).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "setting my-product flag")
	}
	return nil
}
