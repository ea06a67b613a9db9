package standardize

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"marketpipe/internal/models"
	"marketpipe/internal/plugins"
	"marketpipe/internal/storage"
)

// Column widths of the durable schema; longer values are truncated before
// they reach staging.
const (
	maxProductIDLen   = 18
	maxMarketplaceLen = 32
	maxGroupLen       = 32
	maxTitleLen       = 500
	maxDescriptionLen = 4000
	maxCurrencyLen    = 3
	maxSellerNameLen  = 255
	maxSellerURLLen   = 1000
)

// Stats counts accepted vs rejected rows for one marketplace, for the
// per-run summary.
type Stats struct {
	Accepted int
	Rejected int
}

// Engine validates and normalizes the tabular output of a plugin's process
// capability before it is handed to the upsert.
type Engine struct {
	allowed map[string]bool
}

func NewEngine(marketplaces []string) *Engine {
	allowed := make(map[string]bool, len(marketplaces))
	for _, code := range marketplaces {
		allowed[code] = true
	}
	return &Engine{allowed: allowed}
}

// Standardize invokes process on the raw payload and returns the rows that
// satisfy the schema invariants. Rows that violate an invariant are dropped
// and counted, never propagated.
func (e *Engine) Standardize(code, group string, date time.Time, process plugins.ProcessFunc, raw []plugins.RawRecord) ([]models.ProductRow, []models.SellerRow, Stats, error) {
	products, sellers, err := process(raw)
	if err != nil {
		return nil, nil, Stats{}, fmt.Errorf("process failed for %q: %w", code, err)
	}

	var stats Stats
	accepted := make([]models.ProductRow, 0, len(products))
	for _, row := range products {
		if row.Marketplace == "" {
			row.Marketplace = code
		}
		if row.ProductGroup == "" {
			row.ProductGroup = group
		}
		if row.UploadDate.IsZero() {
			row.UploadDate = date
		}
		normalizeRow(&row)

		if reason := e.validate(&row); reason != "" {
			stats.Rejected++
			log.Printf("standardize: dropping row from %s: %s", code, reason)
			continue
		}
		stats.Accepted++
		accepted = append(accepted, row)
	}

	return accepted, dedupeSellers(sellers), stats, nil
}

func normalizeRow(row *models.ProductRow) {
	row.ProductID = Truncate(CleanText(row.ProductID), maxProductIDLen)
	row.Marketplace = Truncate(CleanText(row.Marketplace), maxMarketplaceLen)
	row.ProductGroup = Truncate(CleanText(row.ProductGroup), maxGroupLen)
	row.Title = Truncate(CleanText(row.Title), maxTitleLen)
	if row.Description != nil {
		desc := Truncate(CleanText(*row.Description), maxDescriptionLen)
		row.Description = &desc
	}
	if row.Currency != nil {
		cur := Truncate(CleanText(*row.Currency), maxCurrencyLen)
		row.Currency = &cur
	}
	if row.SellerName != nil {
		name := Truncate(CleanText(*row.SellerName), maxSellerNameLen)
		row.SellerName = &name
	}
}

func (e *Engine) validate(row *models.ProductRow) string {
	switch {
	case row.ProductID == "":
		return "empty ProductID"
	case row.Title == "":
		return "empty Title"
	case !e.allowed[row.Marketplace]:
		return fmt.Sprintf("marketplace %q is not configured", row.Marketplace)
	case row.Rating != nil && (*row.Rating < 0 || *row.Rating > 5):
		return fmt.Sprintf("rating %.2f out of bounds for %s", *row.Rating, row.ProductID)
	case row.Price != nil && *row.Price < 0:
		return fmt.Sprintf("negative price for %s", row.ProductID)
	default:
		return ""
	}
}

// dedupeSellers keeps one row per (name, marketplace), preferring a row that
// carries a URL.
func dedupeSellers(rows []models.SellerRow) []models.SellerRow {
	index := make(map[string]int)
	var out []models.SellerRow
	for _, row := range rows {
		row.Name = Truncate(CleanText(row.Name), maxSellerNameLen)
		if row.URL != nil {
			url := Truncate(*row.URL, maxSellerURLLen)
			row.URL = &url
		}
		if row.Name == "" || row.Marketplace == "" {
			continue
		}
		key := row.Name + "\x00" + row.Marketplace
		if i, seen := index[key]; seen {
			if out[i].URL == nil && row.URL != nil {
				out[i].URL = row.URL
			}
			continue
		}
		index[key] = len(out)
		out = append(out, row)
	}
	return out
}

// Reviews flattens raw review payloads into append-only review rows. Review
// payloads are shaped the same across marketplaces: a product identifier
// plus a list of review entries.
func Reviews(raw []plugins.RawRecord, idFields []string) []models.Review {
	var out []models.Review
	for _, rec := range raw {
		productID := ""
		for _, field := range idFields {
			if id := asString(rec[field]); id != "" {
				productID = id
				break
			}
		}
		if productID == "" {
			continue
		}
		entries, ok := rec["reviews"].([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			body, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			review := models.Review{
				ProductID:  Truncate(productID, maxProductIDLen),
				ReviewText: CleanText(firstString(body, "text", "review_text", "body")),
				ReviewTs:   parseReviewTs(firstString(body, "date", "ts", "timestamp")),
			}
			if rating := asIntPtr(body["rating"]); rating != nil {
				review.Rating = rating
			}
			out = append(out, review)
		}
	}
	return out
}

// WriteProcessed persists the standardized output to the processed tier as
// schema-stable CSV, for audit and reproducibility.
func (e *Engine) WriteProcessed(ctx context.Context, blob storage.BlobStore, code, date string, products []models.ProductRow, sellers []models.SellerRow) error {
	productCSV, err := productsCSV(products)
	if err != nil {
		return err
	}
	if err := blob.PutBytes(ctx, storage.ProcessedProducts(code, date), productCSV, "text/csv"); err != nil {
		return fmt.Errorf("failed to persist processed products for %s: %w", code, err)
	}

	sellerCSV, err := sellersCSV(sellers)
	if err != nil {
		return err
	}
	if err := blob.PutBytes(ctx, storage.ProcessedSellers(code, date), sellerCSV, "text/csv"); err != nil {
		return fmt.Errorf("failed to persist processed sellers for %s: %w", code, err)
	}
	return nil
}

var productColumns = []string{
	"product_id", "marketplace", "product_group", "upload_date", "title",
	"description", "rating", "price", "currency", "seller_name", "query",
}

func productsCSV(rows []models.ProductRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(productColumns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.ProductID,
			row.Marketplace,
			row.ProductGroup,
			row.UploadDate.UTC().Format(time.RFC3339),
			row.Title,
			strDeref(row.Description),
			floatDeref(row.Rating),
			floatDeref(row.Price),
			strDeref(row.Currency),
			strDeref(row.SellerName),
			row.Query,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func sellersCSV(rows []models.SellerRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "marketplace", "url"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Name, row.Marketplace, strDeref(row.URL)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatDeref(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func firstString(rec map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(rec[key]); s != "" {
			return s
		}
	}
	return ""
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return &i
		}
	}
	return nil
}

func parseReviewTs(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
