package models

import (
	"time"

	"github.com/google/uuid"
)

type Label struct {
	LabelID    int64     `json:"label_id" db:"label_id"`
	ImageGUID  uuid.UUID `json:"image_guid" db:"image_guid"`
	LabelType  string    `json:"label_type" db:"label_type"`
	LabelValue string    `json:"label_value" db:"label_value"`
	LabeledBy  *string   `json:"labeled_by" db:"labeled_by"`
	LabeledTs  time.Time `json:"labeled_ts" db:"labeled_ts"`
}
