package repositories

import (
	"context"
	"fmt"

	"marketpipe/internal/models"
)

// SellerKey is the business identity of a seller. Storage assigns the
// surrogate SellerID.
type SellerKey struct {
	Name        string
	Marketplace string
}

type SellerRepository interface {
	UpsertBatch(ctx context.Context, rows []models.SellerRow) (map[SellerKey]int64, error)
	GetByKey(ctx context.Context, name, marketplace string) (*models.Seller, error)
}

type sellerRepo struct {
	db Database
}

func NewSellerRepo(db Database) SellerRepository {
	return &sellerRepo{db: db}
}

// UpsertBatch resolves every (name, marketplace) pair to a durable SellerID,
// inserting missing sellers and refreshing the URL of existing ones. It runs
// before the product merge so that every staged product row carries a
// resolvable seller reference.
func (r *sellerRepo) UpsertBatch(ctx context.Context, rows []models.SellerRow) (map[SellerKey]int64, error) {
	query := `
		INSERT INTO sellers (name, marketplace, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, marketplace) DO UPDATE SET url = COALESCE(EXCLUDED.url, sellers.url)
		RETURNING seller_id
	`
	resolved := make(map[SellerKey]int64, len(rows))
	for _, row := range rows {
		var id int64
		if err := r.db.QueryRow(ctx, query, row.Name, row.Marketplace, row.URL).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to upsert seller %q/%q: %w", row.Name, row.Marketplace, err)
		}
		resolved[SellerKey{Name: row.Name, Marketplace: row.Marketplace}] = id
	}
	return resolved, nil
}

func (r *sellerRepo) GetByKey(ctx context.Context, name, marketplace string) (*models.Seller, error) {
	seller := &models.Seller{}
	query := `
		SELECT seller_id, name, marketplace, url
		FROM sellers
		WHERE name = $1 AND marketplace = $2
	`
	err := r.db.QueryRow(ctx, query, name, marketplace).Scan(&seller.SellerID, &seller.Name, &seller.Marketplace, &seller.URL)
	if err != nil {
		return nil, err
	}
	return seller, nil
}
