package storage

import (
	"fmt"
	"strings"
)

// Storage tiers. Each tier is a bucket; objects within a tier are partitioned
// by marketplace and run date.
const (
	TierRaw       = "raw-scraped"
	TierProcessed = "processed"
	TierModels    = "models-training"
	TierArchive   = "archive"
)

// ObjectPath identifies one object: the tier bucket plus the partitioned key.
type ObjectPath struct {
	Bucket string
	Key    string
}

func (p ObjectPath) String() string {
	return p.Bucket + "/" + p.Key
}

// ParsePath splits a rendered path string back into bucket and key.
func ParsePath(s string) (ObjectPath, error) {
	bucket, key, ok := strings.Cut(s, "/")
	if !ok || bucket == "" || key == "" {
		return ObjectPath{}, fmt.Errorf("malformed object path %q", s)
	}
	return ObjectPath{Bucket: bucket, Key: key}, nil
}

// Plan maps (tier, marketplace, run date, artifact name) to a deterministic
// object path. Re-running the same marketplace/date pair targets the same
// location, so retried writes overwrite instead of duplicating.
func Plan(tier, marketplace, date, name string) ObjectPath {
	return ObjectPath{
		Bucket: tier,
		Key:    fmt.Sprintf("marketplace=%s/date=%s/%s", marketplace, date, name),
	}
}

func RawProducts(marketplace, date string) ObjectPath {
	return Plan(TierRaw, marketplace, date, "products.json")
}

func RawReviews(marketplace, date string) ObjectPath {
	return Plan(TierRaw, marketplace, date, "reviews.json")
}

func RawImage(marketplace, date, productID string, index int) ObjectPath {
	name := fmt.Sprintf("images/%s/%s_image_%d.jpg", productID, productID, index)
	return Plan(TierRaw, marketplace, date, name)
}

func ProcessedProducts(marketplace, date string) ObjectPath {
	return Plan(TierProcessed, marketplace, date, "products.csv")
}

func ProcessedSellers(marketplace, date string) ObjectPath {
	return Plan(TierProcessed, marketplace, date, "sellers.csv")
}
