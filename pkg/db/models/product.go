package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dariomedina/shelfrival-backend/pkg/enums"
)

// Product is the canonical, normalized record for one marketplace listing.
// Records are keyed by (asin, marketplace): a re-fetch updates the existing
// row in place rather than creating a second one. While a comparison still
// references the product it is detached (comparison_id cleared) instead of
// deleted. MainImageURL, when set, is always the first entry of ImageURLs.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ASIN        string    `gorm:"column:asin;not null;uniqueIndex:idx_products_asin_marketplace"`
	Marketplace string    `gorm:"column:marketplace;not null;uniqueIndex:idx_products_asin_marketplace"`

	Title string  `gorm:"column:title;not null"`
	Brand *string `gorm:"column:brand"`
	Link  *string `gorm:"column:link"`

	PriceAmount     *decimal.Decimal `gorm:"column:price_amount;type:numeric(12,2)"`
	Currency        *string          `gorm:"column:currency"`
	PriceRaw        *string          `gorm:"column:price_raw"`
	DiscountPercent *float64         `gorm:"column:discount_percent"`
	CouponText      *string          `gorm:"column:coupon_text"`

	Rating          *float64 `gorm:"column:rating;type:numeric(3,2)"`
	RatingsTotal    *int     `gorm:"column:ratings_total"`
	RatingBreakdown []byte   `gorm:"column:rating_breakdown;type:jsonb"`

	Categories         pq.StringArray `gorm:"column:categories;type:text[]"`
	BestsellerRank     *int           `gorm:"column:bestseller_rank"`
	BestsellerCategory *string        `gorm:"column:bestseller_category"`

	MainImageURL *string        `gorm:"column:main_image_url"`
	ImageURLs    pq.StringArray `gorm:"column:image_urls;type:text[]"`
	ImagesCount  int            `gorm:"column:images_count;not null;default:0"`
	HasVideo     bool           `gorm:"column:has_video;not null;default:false"`

	FeatureBullets pq.StringArray `gorm:"column:feature_bullets;type:text[]"`
	Description    *string        `gorm:"column:description"`
	Specifications []byte         `gorm:"column:specifications;type:jsonb"`

	InStock         *bool   `gorm:"column:in_stock"`
	AvailabilityRaw *string `gorm:"column:availability_raw"`
	SellerName      *string `gorm:"column:seller_name"`

	HasAplus     bool   `gorm:"column:has_aplus;not null;default:false"`
	AplusPayload []byte `gorm:"column:aplus_payload;type:jsonb"`

	RawPayload  []byte            `gorm:"column:raw_payload;type:jsonb"`
	DataQuality enums.DataQuality `gorm:"column:data_quality;not null;default:full"`

	IsMyProduct  bool       `gorm:"column:is_my_product;not null;default:false"`
	ComparisonID *uuid.UUID `gorm:"column:comparison_id;type:uuid"`

	Images []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Videos []ProductVideo `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	FetchedAt time.Time `gorm:"column:fetched_at"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
