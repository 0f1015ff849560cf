package comparison

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
)

// Repository defines persistence for comparisons and their competitor links.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Comparison, error)
	GetByFolder(ctx context.Context, folderID uuid.UUID) (*models.Comparison, error)
	Create(ctx context.Context, comparison *models.Comparison) (*models.Comparison, error)
	UpdateMyProductASIN(ctx context.Context, id uuid.UUID, asin string) error
	ListLinks(ctx context.Context, comparisonID uuid.UUID) ([]models.CompetitorLink, error)
	CreateLinks(ctx context.Context, links []models.CompetitorLink) error
	WithTx(tx *gorm.DB) Repository
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository builds the GORM-backed comparison repository.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) Get(ctx context.Context, id uuid.UUID) (*models.Comparison, error) {
	var comparison models.Comparison
	err := r.db.WithContext(ctx).First(&comparison, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comparison not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching comparison")
	}
	return &comparison, nil
}

func (r *gormRepository) GetByFolder(ctx context.Context, folderID uuid.UUID) (*models.Comparison, error) {
	var comparison models.Comparison
	err := r.db.WithContext(ctx).First(&comparison, "folder_id = ?", folderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "comparison not found for folder")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetching comparison by folder")
	}
	return &comparison, nil
}

func (r *gormRepository) Create(ctx context.Context, comparison *models.Comparison) (*models.Comparison, error) {
	if comparison.ID == uuid.Nil {
		comparison.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(comparison).Error; err != nil {
		return nil, err
	}
	return comparison, nil
}

func (r *gormRepository) UpdateMyProductASIN(ctx context.Context, id uuid.UUID, asin string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Comparison{}).
		Where("id = ?", id).
		Update("my_product_asin", asin)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "updating my-product asin")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "comparison not found")
	}
	return nil
}

func (r *gormRepository) ListLinks(ctx context.Context, comparisonID uuid.UUID) ([]models.CompetitorLink, error) {
	var links []models.CompetitorLink
	err := r.db.WithContext(ctx).
		Where("comparison_id = ?", comparisonID).
		Order("position ASC").
		Find(&links).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing competitor links")
	}
	return links, nil
}

func (r *gormRepository) CreateLinks(ctx context.Context, links []models.CompetitorLink) error {
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		if links[i].ID == uuid.Nil {
			links[i].ID = uuid.New()
		}
	}
	// Raw errors surface here on purpose: the service retries unique
	// violations on (comparison_id, position).
	return r.db.WithContext(ctx).Create(&links).Error
}
