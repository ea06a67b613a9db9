package repositories

import (
	"context"

	"marketpipe/internal/models"
)

type LabelRepository interface {
	Insert(ctx context.Context, label *models.Label) error
}

type labelRepo struct {
	db Database
}

func NewLabelRepo(db Database) LabelRepository {
	return &labelRepo{db: db}
}

func (r *labelRepo) Insert(ctx context.Context, label *models.Label) error {
	query := `
		INSERT INTO labels (image_guid, label_type, label_value, labeled_by, labeled_ts)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, label.ImageGUID, label.LabelType, label.LabelValue, label.LabeledBy, label.LabeledTs)
	return err
}
