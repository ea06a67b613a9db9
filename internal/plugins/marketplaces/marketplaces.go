// Package marketplaces holds the built-in marketplace modules. The set is
// closed at deployment time: every module is registered here and resolved by
// code through the plugin registry.
package marketplaces

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"marketpipe/internal/config"
	"marketpipe/internal/plugins"
	"marketpipe/internal/scraper"
)

// RegisterAll wires every built-in marketplace module into the registry.
func RegisterAll(reg *plugins.Registry, provider scraper.Provider, cfg *config.Config) {
	reg.Register("shoply", func() (plugins.Contract, error) {
		return newShoply(provider, cfg), nil
	})
	reg.Register("vendora", func() (plugins.Contract, error) {
		return newVendora(provider, cfg), nil
	})
}

// searchIDs runs one search query against the provider and extracts product
// identifiers from the marketplace-shaped result list.
func searchIDs(ctx context.Context, provider scraper.Provider, source, query, idField string, max int) ([]string, error) {
	content, err := provider.FetchContent(ctx, map[string]any{
		"source": source,
		"query":  query,
		"parse":  true,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", query, err)
	}

	page, ok := content.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("search %q: content is not an object", query)
	}
	entries, ok := page["results"].([]any)
	if !ok {
		return nil, fmt.Errorf("search %q: missing results list", query)
	}

	var ids []string
	for _, entry := range entries {
		rec, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if id := asString(rec[idField]); id != "" {
			ids = append(ids, id)
		}
		if len(ids) >= max {
			break
		}
	}
	return ids, nil
}

// fetchRecords retrieves one raw record per product ID with a bounded worker
// pool and tags each record with the query that surfaced it. Individual
// fetch failures are dropped; the rest of the batch survives.
func fetchRecords(ctx context.Context, provider scraper.Provider, source, idField string, idToQuery map[string]string, workers int) []plugins.RawRecord {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var records []plugins.RawRecord

	for id, query := range idToQuery {
		wg.Add(1)
		sem <- struct{}{}
		go func(id, query string) {
			defer wg.Done()
			defer func() { <-sem }()

			content, err := provider.FetchContent(ctx, map[string]any{
				"source": source,
				idField:  id,
				"parse":  true,
			})
			if err != nil {
				return
			}
			rec, ok := content.(map[string]any)
			if !ok {
				return
			}
			rec[idField] = id
			rec["query"] = query

			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
		}(id, query)
	}
	wg.Wait()
	return records
}

// collectIDs searches every query and maps each discovered ID back to its
// originating query, capped per query.
func collectIDs(ctx context.Context, provider scraper.Provider, source, idField string, queries []string, maxPerQuery int) (map[string]string, error) {
	idToQuery := make(map[string]string)
	var lastErr error
	for _, query := range queries {
		ids, err := searchIDs(ctx, provider, source, query, idField, maxPerQuery)
		if err != nil {
			lastErr = err
			continue
		}
		for _, id := range ids {
			if _, seen := idToQuery[id]; !seen {
				idToQuery[id] = query
			}
		}
	}
	if len(idToQuery) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return idToQuery, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	if s := asString(v); s != "" {
		return &s
	}
	return nil
}

func asFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}

func asStringSlice(v any) []string {
	entries, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range entries {
		if s := asString(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}
