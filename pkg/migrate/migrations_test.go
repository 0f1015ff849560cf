package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dariomedina/shelfrival-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_and_media_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_images",
		"CREATE TABLE IF NOT EXISTS product_videos",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_asin_marketplace ON products (asin, marketplace)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_product_images_position ON product_images (product_id, position)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_product_videos_external ON product_videos (product_id, external_id)",
		"comparison_id UUID REFERENCES comparisons (id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS products",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCompetitorLinksMigrationEnforcesUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_competitor_links_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS competitor_links",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_competitor_links_asin ON competitor_links (comparison_id, asin)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_competitor_links_position ON competitor_links (comparison_id, position)",
		"REFERENCES comparisons (id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS competitor_links",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestComparisonsMigrationIsOnePerFolder(t *testing.T) {
	content := readMigration(t, "*_create_folders_and_comparisons_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS folders",
		"CREATE TABLE IF NOT EXISTS comparisons",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_comparisons_folder ON comparisons (folder_id)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
