package models

import (
	"time"

	"github.com/google/uuid"
)

type Image struct {
	ImageGUID     uuid.UUID `json:"image_guid" db:"image_guid"`
	ProductID     string    `json:"product_id" db:"product_id"`
	BlobPath      string    `json:"blob_path" db:"blob_path"`
	Width         int       `json:"width" db:"width"`
	Height        int       `json:"height" db:"height"`
	Format        string    `json:"format" db:"format"`
	FileSizeBytes int64     `json:"file_size_bytes" db:"file_size_bytes"`
	Checksum      string    `json:"checksum" db:"checksum"`
	UploadTs      time.Time `json:"upload_ts" db:"upload_ts"`
}
