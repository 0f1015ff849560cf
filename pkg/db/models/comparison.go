package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomedina/shelfrival-backend/pkg/enums"
)

// Comparison is the aggregate root for one folder's "my product vs.
// competitors" analysis. At most one comparison exists per folder.
type Comparison struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FolderID      uuid.UUID              `gorm:"column:folder_id;type:uuid;not null;uniqueIndex:idx_comparisons_folder"`
	Name          string                 `gorm:"column:name;not null"`
	Marketplace   string                 `gorm:"column:marketplace;not null"`
	MyProductASIN *string                `gorm:"column:my_product_asin"`
	Status        enums.ComparisonStatus `gorm:"column:status;not null;default:draft"`
	CreatedBy     *string                `gorm:"column:created_by"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
