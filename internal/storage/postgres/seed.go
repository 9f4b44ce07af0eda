package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	upsertCategorySQL = `INSERT INTO categories (id, slug, name, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug, name = EXCLUDED.name, position = EXCLUDED.position`

	upsertProductSQL = `INSERT INTO products
		(id, name, price, category_id, image_thumbnail, image_desktop)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			image_thumbnail = EXCLUDED.image_thumbnail,
			image_desktop = EXCLUDED.image_desktop`

	upsertAPIKeySQL = `INSERT INTO api_keys (key_hash, name, scopes)
		VALUES ($1, $2, $3)
		ON CONFLICT (key_hash) DO UPDATE SET
			name = EXCLUDED.name, scopes = EXCLUDED.scopes`
)

// Seeder writes reference data used by the seed tool. It bypasses the domain
// repositories because seeding needs upsert semantics the API never exposes.
type Seeder struct {
	pool *pgxpool.Pool
}

func NewSeeder(pool *pgxpool.Pool) *Seeder {
	return &Seeder{pool: pool}
}

func (s *Seeder) UpsertCategory(ctx context.Context, id, slug, name string, position int) error {
	if _, err := s.pool.Exec(ctx, upsertCategorySQL, id, slug, name, position); err != nil {
		return fmt.Errorf("upserting category %q: %w", id, err)
	}
	return nil
}

func (s *Seeder) UpsertProduct(ctx context.Context, id, name string, price decimal.Decimal, categoryID, imageThumbnail, imageDesktop string) error {
	if _, err := s.pool.Exec(ctx, upsertProductSQL, id, name, price, categoryID, imageThumbnail, imageDesktop); err != nil {
		return fmt.Errorf("upserting product %q: %w", id, err)
	}
	return nil
}

func (s *Seeder) UpsertAPIKey(ctx context.Context, keyHash, name string, scopes []string) error {
	if _, err := s.pool.Exec(ctx, upsertAPIKeySQL, keyHash, name, scopes); err != nil {
		return fmt.Errorf("upserting api key %q: %w", name, err)
	}
	return nil
}
