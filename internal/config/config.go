package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide settings. It is built once in main and passed
// to every component that needs it.
type Config struct {
	DatabaseURL string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ScrapeAPIURL   string
	ScrapeUsername string
	ScrapePassword string

	LabelAPIURL         string
	LabelAPIKey         string
	LabelModelID        string
	LabelMinProbability float64

	Marketplaces []string
	Queries      []string
	ProductGroup string
	ScrapeDate   string

	MaxProductsPerQuery int
	MaxImagesPerProduct int
	MaxImageWorkers     int
	MaxScrapeWorkers    int

	Port int
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MinioEndpoint:       envOr("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:      envOr("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:      envOr("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:         os.Getenv("MINIO_USE_SSL") == "true",
		RedisAddr:           envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             envInt("REDIS_DB", 0),
		ScrapeAPIURL:        envOr("SCRAPE_API_URL", "https://realtime.scrapeprovider.io/v1/queries"),
		ScrapeUsername:      os.Getenv("SCRAPE_API_USERNAME"),
		ScrapePassword:      os.Getenv("SCRAPE_API_PASSWORD"),
		LabelAPIURL:         os.Getenv("LABEL_API_URL"),
		LabelAPIKey:         os.Getenv("LABEL_API_KEY"),
		LabelModelID:        envOr("LABEL_MODEL_ID", "cv-compliance-v1"),
		LabelMinProbability: envFloat("LABEL_MIN_PROBABILITY", 0.5),
		Marketplaces:        splitCSV(envOr("MARKETPLACES", "shoply,vendora")),
		Queries:             splitCSV(os.Getenv("SCRAPE_QUERIES")),
		ProductGroup:        envOr("PRODUCT_GROUP", "Group A"),
		ScrapeDate:          envOr("SCRAPE_DATE", time.Now().Format("2006-01-02")),
		MaxProductsPerQuery: envInt("MAX_PRODUCTS_PER_QUERY", 200),
		MaxImagesPerProduct: envInt("MAX_IMAGES_PER_PRODUCT", 5),
		MaxImageWorkers:     envInt("MAX_IMAGE_WORKERS", 50),
		MaxScrapeWorkers:    envInt("MAX_SCRAPE_WORKERS", 10),
		Port:                envInt("PORT", 8080),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if len(cfg.Marketplaces) == 0 {
		return nil, fmt.Errorf("MARKETPLACES must list at least one marketplace code")
	}
	return cfg, nil
}

// AllowedMarketplace reports whether code is one of the configured
// marketplace codes.
func (c *Config) AllowedMarketplace(code string) bool {
	for _, m := range c.Marketplaces {
		if m == code {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
