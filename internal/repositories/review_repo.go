package repositories

import (
	"context"
	"fmt"

	"marketpipe/internal/models"
)

type ReviewRepository interface {
	InsertBatch(ctx context.Context, reviews []models.Review) (int, error)
}

type reviewRepo struct {
	db Database
}

func NewReviewRepo(db Database) ReviewRepository {
	return &reviewRepo{db: db}
}

// InsertBatch appends review rows. Reviews carry no external identifier, so
// no dedup is attempted; re-scraped reviews become new rows.
func (r *reviewRepo) InsertBatch(ctx context.Context, reviews []models.Review) (int, error) {
	query := `
		INSERT INTO reviews (product_id, review_text, rating, review_ts)
		VALUES ($1, $2, $3, $4)
	`
	inserted := 0
	for _, review := range reviews {
		var ts any
		if !review.ReviewTs.IsZero() {
			ts = review.ReviewTs
		}
		if _, err := r.db.Exec(ctx, query, review.ProductID, review.ReviewText, review.Rating, ts); err != nil {
			return inserted, fmt.Errorf("failed to insert review for %s: %w", review.ProductID, err)
		}
		inserted++
	}
	return inserted, nil
}
