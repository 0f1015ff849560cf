package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  asin TEXT NOT NULL,
  marketplace TEXT NOT NULL,
  title TEXT NOT NULL,
  brand TEXT,
  link TEXT,
  price_amount TEXT,
  currency TEXT,
  price_raw TEXT,
  discount_percent REAL,
  coupon_text TEXT,
  rating REAL,
  ratings_total INTEGER,
  rating_breakdown TEXT,
  categories TEXT,
  bestseller_rank INTEGER,
  bestseller_category TEXT,
  main_image_url TEXT,
  image_urls TEXT,
  images_count INTEGER NOT NULL DEFAULT 0,
  has_video INTEGER NOT NULL DEFAULT 0,
  feature_bullets TEXT,
  description TEXT,
  specifications TEXT,
  in_stock INTEGER,
  availability_raw TEXT,
  seller_name TEXT,
  has_aplus INTEGER NOT NULL DEFAULT 0,
  aplus_payload TEXT,
  raw_payload TEXT,
  data_quality TEXT NOT NULL DEFAULT 'full',
  is_my_product INTEGER NOT NULL DEFAULT 0,
  comparison_id TEXT,
  fetched_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (asin, marketplace)
);`
	images := `
CREATE TABLE IF NOT EXISTS product_images (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  url TEXT NOT NULL,
  variant TEXT NOT NULL DEFAULT '',
  position INTEGER NOT NULL,
  width INTEGER,
  height INTEGER,
  created_at DATETIME,
  UNIQUE (product_id, position)
);`
	videos := `
CREATE TABLE IF NOT EXISTS product_videos (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  external_id TEXT NOT NULL,
  title TEXT,
  thumbnail_url TEXT,
  url TEXT NOT NULL,
  duration_seconds INTEGER,
  creator_type TEXT NOT NULL DEFAULT 'brand',
  creator_name TEXT,
  kind TEXT NOT NULL DEFAULT 'hero',
  captions TEXT,
  source_field TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (product_id, external_id)
);`

	for _, stmt := range []string{products, images, videos} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	for _, table := range []string{"product_videos", "product_images", "products"} {
		require.NoError(t, conn.Exec("DELETE FROM "+table).Error)
	}
	return conn
}
