package repositories

import (
	"context"

	"marketpipe/internal/models"
)

type ImageRepository interface {
	Insert(ctx context.Context, image *models.Image) error
	ExistsByChecksum(ctx context.Context, productID, checksum string) (bool, error)
	ListUnlabeled(ctx context.Context, limit int) ([]*models.Image, error)
	CountByProduct(ctx context.Context, productID string) (int, error)
}

type imageRepo struct {
	db Database
}

func NewImageRepo(db Database) ImageRepository {
	return &imageRepo{db: db}
}

func (r *imageRepo) Insert(ctx context.Context, image *models.Image) error {
	query := `
		INSERT INTO images (image_guid, product_id, blob_path, width, height, format, file_size_bytes, checksum, upload_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, image.ImageGUID, image.ProductID, image.BlobPath,
		image.Width, image.Height, image.Format, image.FileSizeBytes, image.Checksum, image.UploadTs)
	return err
}

// ExistsByChecksum detects byte-identical content already recorded for a
// product, regardless of where the bytes were stored.
func (r *imageRepo) ExistsByChecksum(ctx context.Context, productID, checksum string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM images WHERE product_id = $1 AND checksum = $2)`
	err := r.db.QueryRow(ctx, query, productID, checksum).Scan(&exists)
	return exists, err
}

func (r *imageRepo) ListUnlabeled(ctx context.Context, limit int) ([]*models.Image, error) {
	query := `
		SELECT i.image_guid, i.product_id, i.blob_path, i.width, i.height, i.format, i.file_size_bytes, i.checksum, i.upload_ts
		FROM images i
		LEFT JOIN labels l ON l.image_guid = i.image_guid
		WHERE l.label_id IS NULL
		ORDER BY i.upload_ts
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		image := &models.Image{}
		if err := rows.Scan(&image.ImageGUID, &image.ProductID, &image.BlobPath, &image.Width,
			&image.Height, &image.Format, &image.FileSizeBytes, &image.Checksum, &image.UploadTs); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

func (r *imageRepo) CountByProduct(ctx context.Context, productID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM images WHERE product_id = $1`
	err := r.db.QueryRow(ctx, query, productID).Scan(&count)
	return count, err
}
