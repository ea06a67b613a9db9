package marketplaces

import (
	"context"

	"marketpipe/internal/config"
	"marketpipe/internal/models"
	"marketpipe/internal/plugins"
	"marketpipe/internal/scraper"
)

// Vendora returns flat payloads: stars come back as text, price fields are
// split, and the merchant is inlined.
func newVendora(provider scraper.Provider, cfg *config.Config) plugins.Contract {
	return plugins.Contract{
		Scrape: func(ctx context.Context, queries []string) ([]plugins.RawRecord, []plugins.RawRecord, error) {
			idToQuery, err := collectIDs(ctx, provider, "vendora_search", "itemId", queries, cfg.MaxProductsPerQuery)
			if err != nil {
				return nil, nil, err
			}
			products := fetchRecords(ctx, provider, "vendora_item", "itemId", idToQuery, cfg.MaxScrapeWorkers)
			reviews := fetchRecords(ctx, provider, "vendora_feedback", "itemId", idToQuery, cfg.MaxScrapeWorkers)
			return products, reviews, nil
		},
		Process: processVendora,
	}
}

func processVendora(raw []plugins.RawRecord) ([]models.ProductRow, []models.SellerRow, error) {
	var products []models.ProductRow
	var sellers []models.SellerRow

	for _, rec := range raw {
		row := models.ProductRow{
			ProductID:   asString(rec["itemId"]),
			Marketplace: "vendora",
			Title:       asString(rec["name"]),
			Description: asStringPtr(rec["details"]),
			Rating:      asFloatPtr(rec["stars"]),
			Price:       asFloatPtr(rec["priceAmount"]),
			Currency:    asStringPtr(rec["priceCurrency"]),
			Query:       asString(rec["query"]),
			ImageURLs:   asStringSlice(rec["imageList"]),
		}

		if name := asString(rec["merchantName"]); name != "" {
			row.SellerName = &name
			sellers = append(sellers, models.SellerRow{
				Name:        name,
				Marketplace: "vendora",
				URL:         asStringPtr(rec["merchantUrl"]),
			})
		}

		products = append(products, row)
	}
	return products, sellers, nil
}
