package plugins

import (
	"context"

	"marketpipe/internal/models"
)

// RawRecord is a marketplace-shaped payload exactly as the scraping provider
// returned it. No normalization has been applied.
type RawRecord = map[string]any

// ScrapeFunc runs a marketplace's scraping logic for a batch of search
// queries and returns raw product and review payloads.
type ScrapeFunc func(ctx context.Context, queries []string) (rawProducts, rawReviews []RawRecord, err error)

// ProcessFunc shapes the raw product payload into standardized product and
// seller rows. SellerID resolution happens later, during the upsert.
type ProcessFunc func(raw []RawRecord) ([]models.ProductRow, []models.SellerRow, error)

// Contract is the capability pair every marketplace module must expose.
// A nil capability is a configuration error, reported by the registry at
// resolve time.
type Contract struct {
	Scrape  ScrapeFunc
	Process ProcessFunc
}

// Factory builds a marketplace's Contract. It runs once, on first resolve.
type Factory func() (Contract, error)
