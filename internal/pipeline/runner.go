package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketpipe/internal/caching"
	"marketpipe/internal/config"
	"marketpipe/internal/labeling"
	"marketpipe/internal/models"
	"marketpipe/internal/plugins"
	"marketpipe/internal/repositories"
	"marketpipe/internal/scraper"
	"marketpipe/internal/standardize"
	"marketpipe/internal/storage"
)

// Mode selects where the raw payload comes from: a fresh scrape, or a
// re-load of a previous run's raw tier.
type Mode string

const (
	ModeScrape    Mode = "scrape"
	ModeReprocess Mode = "reprocess"
)

// Summary is the per-marketplace outcome of one run.
type Summary struct {
	Marketplace string `json:"marketplace"`
	Scraped     int    `json:"scraped"`
	Accepted    int    `json:"accepted"`
	Rejected    int    `json:"rejected"`
	Reviews     int    `json:"reviews"`
	Images      int    `json:"images"`
	Merged      bool   `json:"merged"`
	Error       string `json:"error,omitempty"`
}

// reviewIDFields are the product-identifier aliases seen across marketplace
// review payloads.
var reviewIDFields = []string{"product_id", "itemId"}

// Runner drives one date-stamped run: per marketplace, scrape (or re-load),
// standardize, and merge, then a labeling pass over stored images.
// Marketplaces run concurrently; stages within one marketplace are strictly
// ordered, and one marketplace's failure never aborts another's.
type Runner struct {
	cfg      *config.Config
	registry *plugins.Registry
	provider scraper.Provider
	blob     storage.BlobStore
	engine   *standardize.Engine
	sellers  repositories.SellerRepository
	products repositories.ProductRepository
	images   repositories.ImageRepository
	reviews  repositories.ReviewRepository
	locks    caching.RunLockService
	labeler  *labeling.Coordinator

	mu       sync.Mutex
	lastDate string
	last     map[string]*Summary
}

func NewRunner(
	cfg *config.Config,
	registry *plugins.Registry,
	provider scraper.Provider,
	blob storage.BlobStore,
	engine *standardize.Engine,
	sellers repositories.SellerRepository,
	products repositories.ProductRepository,
	images repositories.ImageRepository,
	reviews repositories.ReviewRepository,
	locks caching.RunLockService,
	labeler *labeling.Coordinator,
) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: registry,
		provider: provider,
		blob:     blob,
		engine:   engine,
		sellers:  sellers,
		products: products,
		images:   images,
		reviews:  reviews,
		locks:    locks,
		labeler:  labeler,
	}
}

// Run processes every configured marketplace for the given run date and
// returns the per-marketplace summaries.
func (r *Runner) Run(ctx context.Context, date string, mode Mode) map[string]*Summary {
	summaries := make(map[string]*Summary, len(r.cfg.Marketplaces))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, code := range r.cfg.Marketplaces {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			summary := r.runMarketplace(ctx, code, date, mode)
			mu.Lock()
			summaries[code] = summary
			mu.Unlock()
		}(code)
	}
	wg.Wait()

	if r.labeler != nil {
		if stats, err := r.labeler.Run(ctx, 500); err != nil {
			log.Printf("run %s: labeling pass failed: %v", date, err)
		} else {
			log.Printf("run %s: labeled %d images, %d failed", date, stats.Labeled, stats.Failed)
		}
	}

	r.mu.Lock()
	r.lastDate = date
	r.last = summaries
	r.mu.Unlock()

	for code, s := range summaries {
		log.Printf("run %s [%s]: scraped=%d accepted=%d rejected=%d reviews=%d images=%d merged=%t err=%q",
			date, code, s.Scraped, s.Accepted, s.Rejected, s.Reviews, s.Images, s.Merged, s.Error)
	}
	return summaries
}

// LastSummaries returns the most recent run's date and summaries.
func (r *Runner) LastSummaries() (string, map[string]*Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Summary, len(r.last))
	for code, s := range r.last {
		copied := *s
		out[code] = &copied
	}
	return r.lastDate, out
}

func (r *Runner) runMarketplace(ctx context.Context, code, date string, mode Mode) *Summary {
	summary := &Summary{Marketplace: code}
	fail := func(err error) *Summary {
		summary.Error = err.Error()
		log.Printf("run %s [%s]: %v", date, code, err)
		return summary
	}

	contract, err := r.registry.Resolve(code)
	if err != nil {
		return fail(err)
	}

	acquired, err := r.locks.Acquire(ctx, code, date)
	if err != nil {
		return fail(fmt.Errorf("run lock check failed: %w", err))
	}
	if !acquired {
		return fail(fmt.Errorf("a run for %s/%s is already in progress", code, date))
	}
	defer func() {
		if err := r.locks.Release(context.WithoutCancel(ctx), code, date); err != nil {
			log.Printf("run %s [%s]: failed to release run lock: %v", date, code, err)
		}
	}()

	rawProducts, rawReviews, err := r.loadRaw(ctx, contract, code, date, mode)
	if err != nil {
		return fail(err)
	}
	summary.Scraped = len(rawProducts)

	runDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fail(fmt.Errorf("invalid run date %q: %w", date, err))
	}

	rows, sellerRows, stats, err := r.engine.Standardize(code, r.cfg.ProductGroup, runDate.UTC(), contract.Process, rawProducts)
	if err != nil {
		return fail(err)
	}
	summary.Accepted = stats.Accepted
	summary.Rejected = stats.Rejected

	if err := r.engine.WriteProcessed(ctx, r.blob, code, date, rows, sellerRows); err != nil {
		return fail(err)
	}

	if err := r.merge(ctx, rows, sellerRows); err != nil {
		if errors.Is(err, repositories.ErrIntegrity) {
			return fail(fmt.Errorf("merge batch rejected: %w", err))
		}
		return fail(err)
	}
	summary.Merged = true

	summary.Reviews = r.appendReviews(ctx, code, rawReviews)
	summary.Images = r.ingestImages(ctx, code, date, rows)
	return summary
}

// loadRaw produces the raw payload for one marketplace: scraping and
// persisting it to the raw tier, or re-loading a previous run's output.
func (r *Runner) loadRaw(ctx context.Context, contract plugins.Contract, code, date string, mode Mode) ([]plugins.RawRecord, []plugins.RawRecord, error) {
	if mode == ModeReprocess {
		var rawProducts, rawReviews []plugins.RawRecord
		if err := r.blob.GetJSON(ctx, storage.RawProducts(code, date), &rawProducts); err != nil {
			return nil, nil, fmt.Errorf("failed to re-load raw products: %w", err)
		}
		if err := r.blob.GetJSON(ctx, storage.RawReviews(code, date), &rawReviews); err != nil {
			log.Printf("run %s [%s]: no raw reviews to re-load: %v", date, code, err)
		}
		return rawProducts, rawReviews, nil
	}

	rawProducts, rawReviews, err := contract.Scrape(ctx, r.cfg.Queries)
	if err != nil {
		return nil, nil, fmt.Errorf("scrape failed: %w", err)
	}

	if err := r.blob.PutJSON(ctx, storage.RawProducts(code, date), rawProducts); err != nil {
		return nil, nil, fmt.Errorf("failed to persist raw products: %w", err)
	}
	if err := r.blob.PutJSON(ctx, storage.RawReviews(code, date), rawReviews); err != nil {
		return nil, nil, fmt.Errorf("failed to persist raw reviews: %w", err)
	}
	return rawProducts, rawReviews, nil
}

// merge resolves seller identities and applies the product batch as one
// atomic upsert.
func (r *Runner) merge(ctx context.Context, rows []models.ProductRow, sellerRows []models.SellerRow) error {
	resolved, err := r.sellers.UpsertBatch(ctx, sellerRows)
	if err != nil {
		return fmt.Errorf("seller upsert failed: %w", err)
	}

	products := make([]*models.Product, 0, len(rows))
	for _, row := range rows {
		product := &models.Product{
			ProductID:    row.ProductID,
			Marketplace:  row.Marketplace,
			ProductGroup: row.ProductGroup,
			UploadDate:   row.UploadDate,
			Title:        row.Title,
			Description:  row.Description,
			Rating:       row.Rating,
			Price:        row.Price,
			Currency:     row.Currency,
		}
		numImages := len(row.ImageURLs)
		product.NumImages = &numImages
		if row.SellerName != nil {
			if id, ok := resolved[repositories.SellerKey{Name: *row.SellerName, Marketplace: row.Marketplace}]; ok {
				product.SellerID = &id
			}
		}
		products = append(products, product)
	}

	return r.products.MergeBatch(ctx, products)
}

func (r *Runner) appendReviews(ctx context.Context, code string, rawReviews []plugins.RawRecord) int {
	reviews := standardize.Reviews(rawReviews, reviewIDFields)
	if len(reviews) == 0 {
		return 0
	}

	ids := make([]string, 0, len(reviews))
	for _, review := range reviews {
		ids = append(ids, review.ProductID)
	}
	existing, err := r.products.ExistingIDs(ctx, ids)
	if err != nil {
		log.Printf("[%s] could not check product ids for reviews: %v", code, err)
		return 0
	}

	kept := reviews[:0]
	for _, review := range reviews {
		if existing[review.ProductID] {
			kept = append(kept, review)
		}
	}

	inserted, err := r.reviews.InsertBatch(ctx, kept)
	if err != nil {
		log.Printf("[%s] review insert stopped after %d rows: %v", code, inserted, err)
	}
	return inserted
}

// ingestImages downloads each accepted product's images, stores the bytes at
// a deterministic raw-tier path, and records one Image row per new checksum.
func (r *Runner) ingestImages(ctx context.Context, code, date string, rows []models.ProductRow) int {
	var jobs []scraper.ImageJob
	for _, row := range rows {
		urls := row.ImageURLs
		if len(urls) > r.cfg.MaxImagesPerProduct {
			urls = urls[:r.cfg.MaxImagesPerProduct]
		}
		for idx, url := range urls {
			jobs = append(jobs, scraper.ImageJob{ProductID: row.ProductID, Index: idx, URL: url})
		}
	}
	if len(jobs) == 0 {
		return 0
	}

	stored := 0
	for _, fetched := range scraper.FetchImages(ctx, r.provider, jobs, r.cfg.MaxImageWorkers) {
		if fetched.Err != nil {
			log.Printf("[%s] image %s#%d failed: %v", code, fetched.Job.ProductID, fetched.Job.Index, fetched.Err)
			continue
		}

		path := storage.RawImage(code, date, fetched.Job.ProductID, fetched.Job.Index)
		if err := r.blob.PutBytes(ctx, path, fetched.Bytes, "image/jpeg"); err != nil {
			log.Printf("[%s] image upload %s failed: %v", code, path, err)
			continue
		}

		exists, err := r.images.ExistsByChecksum(ctx, fetched.Job.ProductID, fetched.Checksum)
		if err != nil {
			log.Printf("[%s] checksum lookup for %s failed: %v", code, fetched.Job.ProductID, err)
			continue
		}
		if exists {
			continue
		}

		image := &models.Image{
			ImageGUID:     uuid.New(),
			ProductID:     fetched.Job.ProductID,
			BlobPath:      path.String(),
			Width:         fetched.Width,
			Height:        fetched.Height,
			Format:        fetched.Format,
			FileSizeBytes: int64(len(fetched.Bytes)),
			Checksum:      fetched.Checksum,
			UploadTs:      time.Now().UTC(),
		}
		if err := r.images.Insert(ctx, image); err != nil {
			log.Printf("[%s] image row insert for %s failed: %v", code, fetched.Job.ProductID, err)
			continue
		}
		stored++
	}
	return stored
}
