package models

import (
	"time"
)

// Review rows are append-only facts. There is no external review identifier,
// so re-scraping the same review is stored as a new row.
type Review struct {
	ReviewID   int64     `json:"review_id" db:"review_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	ReviewText string    `json:"review_text" db:"review_text"`
	Rating     *int      `json:"rating" db:"rating"`
	ReviewTs   time.Time `json:"review_ts" db:"review_ts"`
}
