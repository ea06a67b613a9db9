package scraper

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"
)

// ImageJob is one product image URL to download.
type ImageJob struct {
	ProductID string
	Index     int
	URL       string
}

// FetchedImage is the outcome of one download, with metadata extracted from
// the bytes. Err is set when the download or decode failed; a failed image
// never blocks the rest of the batch.
type FetchedImage struct {
	Job      ImageJob
	Bytes    []byte
	Width    int
	Height   int
	Format   string
	Checksum string
	Err      error
}

// FetchImages downloads a batch of images with a bounded worker pool.
// Results preserve job order.
func FetchImages(ctx context.Context, provider Provider, jobs []ImageJob, workers int) []FetchedImage {
	if workers < 1 {
		workers = 1
	}
	results := make([]FetchedImage, len(jobs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job ImageJob) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fetchOne(ctx, provider, job)
		}(i, job)
	}
	wg.Wait()
	return results
}

func fetchOne(ctx context.Context, provider Provider, job ImageJob) FetchedImage {
	out := FetchedImage{Job: job}

	data, err := provider.FetchImage(ctx, job.URL)
	if err != nil {
		out.Err = err
		return out
	}
	out.Bytes = data

	sum := sha256.Sum256(data)
	out.Checksum = hex.EncodeToString(sum[:])

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		out.Err = err
		return out
	}
	out.Width = cfg.Width
	out.Height = cfg.Height
	out.Format = format
	return out
}
