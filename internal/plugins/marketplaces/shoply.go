package marketplaces

import (
	"context"

	"marketpipe/internal/config"
	"marketpipe/internal/models"
	"marketpipe/internal/plugins"
	"marketpipe/internal/scraper"
)

// Shoply returns nested payloads: price and seller are objects, images a
// plain URL list.
func newShoply(provider scraper.Provider, cfg *config.Config) plugins.Contract {
	return plugins.Contract{
		Scrape: func(ctx context.Context, queries []string) ([]plugins.RawRecord, []plugins.RawRecord, error) {
			idToQuery, err := collectIDs(ctx, provider, "shoply_search", "product_id", queries, cfg.MaxProductsPerQuery)
			if err != nil {
				return nil, nil, err
			}
			products := fetchRecords(ctx, provider, "shoply_product", "product_id", idToQuery, cfg.MaxScrapeWorkers)
			reviews := fetchRecords(ctx, provider, "shoply_reviews", "product_id", idToQuery, cfg.MaxScrapeWorkers)
			return products, reviews, nil
		},
		Process: processShoply,
	}
}

func processShoply(raw []plugins.RawRecord) ([]models.ProductRow, []models.SellerRow, error) {
	var products []models.ProductRow
	var sellers []models.SellerRow

	for _, rec := range raw {
		row := models.ProductRow{
			ProductID:   asString(rec["product_id"]),
			Marketplace: "shoply",
			Title:       asString(rec["title"]),
			Description: asStringPtr(rec["description"]),
			Rating:      asFloatPtr(rec["rating"]),
			Query:       asString(rec["query"]),
			ImageURLs:   asStringSlice(rec["images"]),
		}

		if price, ok := rec["price"].(map[string]any); ok {
			row.Price = asFloatPtr(price["amount"])
			row.Currency = asStringPtr(price["currency"])
		}

		if seller, ok := rec["seller"].(map[string]any); ok {
			if name := asString(seller["name"]); name != "" {
				row.SellerName = &name
				sellers = append(sellers, models.SellerRow{
					Name:        name,
					Marketplace: "shoply",
					URL:         asStringPtr(seller["url"]),
				})
			}
		}

		products = append(products, row)
	}
	return products, sellers, nil
}
