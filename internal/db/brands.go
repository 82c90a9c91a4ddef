package db

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NormalizeName lowercases a brand name and removes whitespace and
// punctuation, producing the uniqueness key for brand lookup.
func NormalizeName(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FindOrCreateBrand finds an existing brand by normalized name or creates one.
func (db *DB) FindOrCreateBrand(ctx context.Context, name string) (*Brand, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	brand, err := findOrCreateBrandTx(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return brand, nil
}

func findOrCreateBrandTx(ctx context.Context, tx pgx.Tx, name string) (*Brand, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("brand name cannot be empty")
	}

	var b Brand
	err := tx.QueryRow(ctx,
		`INSERT INTO brands (name, name_normalized)
		 VALUES ($1, $2)
		 ON CONFLICT (name_normalized) DO UPDATE SET updated_at = NOW()
		 RETURNING id, name, name_normalized, created_at, updated_at`,
		name, normalized,
	).Scan(&b.ID, &b.Name, &b.NameNormalized, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create brand: %w", err)
	}
	return &b, nil
}

// GetBrandByNormalizedName retrieves a brand by its normalized name.
func (db *DB) GetBrandByNormalizedName(ctx context.Context, normalized string) (*Brand, error) {
	var b Brand
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, name_normalized, created_at, updated_at
		 FROM brands WHERE name_normalized = $1`,
		normalized,
	).Scan(&b.ID, &b.Name, &b.NameNormalized, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get brand: %w", err)
	}
	return &b, nil
}

// ListBrands retrieves all brands ordered by name.
func (db *DB) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, name_normalized, created_at, updated_at
		 FROM brands ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	var brands []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.NameNormalized, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, nil
}

// DeleteBrand deletes a brand. Fails while mini-PCs still reference it.
func (db *DB) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brand: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("brand not found: %s", id)
	}
	return nil
}
