package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// BlobStore stores bytes at a path and retrieves bytes by path. Writes to the
// same path overwrite, which is what makes deterministic paths re-runnable.
type BlobStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutBytes(ctx context.Context, path ObjectPath, data []byte, contentType string) error
	GetBytes(ctx context.Context, path ObjectPath) ([]byte, error)
	PutJSON(ctx context.Context, path ObjectPath, v any) error
	GetJSON(ctx context.Context, path ObjectPath, v any) error
	ApplyRawLifecycle(ctx context.Context) error
}

type minioStore struct {
	client *minio.Client
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool) (BlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStore{client: client}, nil
}

func (m *minioStore) EnsureBucket(ctx context.Context, bucket string) error {
	found, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *minioStore) PutBytes(ctx context.Context, path ObjectPath, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, path.Bucket, path.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (m *minioStore) GetBytes(ctx context.Context, path ObjectPath) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, path.Bucket, path.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (m *minioStore) PutJSON(ctx context.Context, path ObjectPath, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.PutBytes(ctx, path, data, "application/json")
}

func (m *minioStore) GetJSON(ctx context.Context, path ObjectPath, v any) error {
	data, err := m.GetBytes(ctx, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ApplyRawLifecycle sets the raw-tier retention rules: objects older than
// 30 days transition to infrequent access, older than 180 days to archival
// storage. The rules apply uniformly, with no per-marketplace override.
func (m *minioStore) ApplyRawLifecycle(ctx context.Context) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     "raw-to-infrequent-access",
			Status: "Enabled",
			Transition: lifecycle.Transition{
				Days:         lifecycle.ExpirationDays(30),
				StorageClass: "STANDARD_IA",
			},
		},
		{
			ID:     "raw-to-archive",
			Status: "Enabled",
			Transition: lifecycle.Transition{
				Days:         lifecycle.ExpirationDays(180),
				StorageClass: "GLACIER",
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, TierRaw, cfg)
}
