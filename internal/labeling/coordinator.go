package labeling

import (
	"context"
	"log"
	"time"

	"marketpipe/internal/models"
	"marketpipe/internal/repositories"
	"marketpipe/internal/storage"
)

// Stats summarizes one labeling pass.
type Stats struct {
	Labeled int
	Failed  int
}

// Coordinator pairs each unlabeled image with the labeling capability and
// records the results relationally. A failure for one image is counted and
// the batch continues.
type Coordinator struct {
	images         repositories.ImageRepository
	labels         repositories.LabelRepository
	products       repositories.ProductRepository
	blob           storage.BlobStore
	labeler        Labeler
	modelID        string
	minProbability float64
}

func NewCoordinator(
	images repositories.ImageRepository,
	labels repositories.LabelRepository,
	products repositories.ProductRepository,
	blob storage.BlobStore,
	labeler Labeler,
	modelID string,
	minProbability float64,
) *Coordinator {
	return &Coordinator{
		images:         images,
		labels:         labels,
		products:       products,
		blob:           blob,
		labeler:        labeler,
		modelID:        modelID,
		minProbability: minProbability,
	}
}

// Run labels up to batchSize unlabeled images and refreshes the image count
// of every touched product.
func (c *Coordinator) Run(ctx context.Context, batchSize int) (Stats, error) {
	images, err := c.images.ListUnlabeled(ctx, batchSize)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	touched := make(map[string]bool)
	for _, image := range images {
		if err := c.labelOne(ctx, image); err != nil {
			stats.Failed++
			log.Printf("labeling: image %s failed: %v", image.ImageGUID, err)
			continue
		}
		stats.Labeled++
		touched[image.ProductID] = true
	}

	for productID := range touched {
		count, err := c.images.CountByProduct(ctx, productID)
		if err != nil {
			log.Printf("labeling: could not count images for %s: %v", productID, err)
			continue
		}
		if err := c.products.UpdateNumImages(ctx, productID, count); err != nil {
			log.Printf("labeling: could not update image count for %s: %v", productID, err)
		}
	}

	return stats, nil
}

func (c *Coordinator) labelOne(ctx context.Context, image *models.Image) error {
	path, err := storage.ParsePath(image.BlobPath)
	if err != nil {
		return err
	}
	data, err := c.blob.GetBytes(ctx, path)
	if err != nil {
		return err
	}

	predictions, err := c.labeler.Predict(ctx, data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, p := range predictions {
		if p.Probability < c.minProbability {
			continue
		}
		modelID := c.modelID
		label := &models.Label{
			ImageGUID:  image.ImageGUID,
			LabelType:  p.Category,
			LabelValue: p.Value,
			LabeledBy:  &modelID,
			LabeledTs:  now,
		}
		if err := c.labels.Insert(ctx, label); err != nil {
			return err
		}
	}
	return nil
}
