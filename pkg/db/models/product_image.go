package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage is one entry in a product's ordered gallery. The whole set is
// replaced on every re-fetch, so positions are always a dense 0..n-1 run.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_images_position"`
	URL       string    `gorm:"column:url;not null"`
	Variant   string    `gorm:"column:variant;not null;default:''"`
	Position  int       `gorm:"column:position;not null;uniqueIndex:idx_product_images_position"`
	Width     *int      `gorm:"column:width"`
	Height    *int      `gorm:"column:height"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
