package models

import (
	"time"

	"github.com/google/uuid"
)

// CompetitorLink places a product into a comparison's competitor list.
// (comparison_id, asin) is unique so re-adding an ASIN is a detectable no-op,
// and (comparison_id, position) is unique so concurrent appends cannot land
// on the same slot.
type CompetitorLink struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ComparisonID uuid.UUID `gorm:"column:comparison_id;type:uuid;not null;uniqueIndex:idx_competitor_links_asin;uniqueIndex:idx_competitor_links_position"`
	ASIN         string    `gorm:"column:asin;not null;uniqueIndex:idx_competitor_links_asin"`
	Position     int       `gorm:"column:position;not null;uniqueIndex:idx_competitor_links_position"`
	Visible      bool      `gorm:"column:visible;not null;default:true"`
	MatchScore   *float64  `gorm:"column:match_score"`
	AddedBy      *string   `gorm:"column:added_by"`
	AddedAt      time.Time `gorm:"column:added_at;autoCreateTime"`
}
