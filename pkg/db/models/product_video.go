package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomedina/shelfrival-backend/pkg/enums"
)

// ProductVideo is one playable video attached to a product. The upstream API
// can surface the same video under two payload fields; the unique index on
// (product_id, external_id) plus insert-or-ignore keeps one row per video.
type ProductVideo struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID              `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_videos_external"`
	ExternalID      string                 `gorm:"column:external_id;not null;uniqueIndex:idx_product_videos_external"`
	Title           *string                `gorm:"column:title"`
	ThumbnailURL    *string                `gorm:"column:thumbnail_url"`
	URL             string                 `gorm:"column:url;not null"`
	DurationSeconds *int                   `gorm:"column:duration_seconds"`
	CreatorType     enums.VideoCreatorType `gorm:"column:creator_type;not null;default:brand"`
	CreatorName     *string                `gorm:"column:creator_name"`
	Kind            enums.VideoKind        `gorm:"column:kind;not null;default:hero"`
	Captions        *string                `gorm:"column:captions"`
	SourceField     enums.VideoSourceField `gorm:"column:source_field;not null"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
}
