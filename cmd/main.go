package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"marketpipe/internal/caching"
	"marketpipe/internal/config"
	"marketpipe/internal/handlers"
	"marketpipe/internal/jobs"
	"marketpipe/internal/labeling"
	"marketpipe/internal/pipeline"
	"marketpipe/internal/plugins"
	"marketpipe/internal/plugins/marketplaces"
	"marketpipe/internal/repositories"
	"marketpipe/internal/scraper"
	"marketpipe/internal/standardize"
	"marketpipe/internal/storage"
	"marketpipe/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}
	for _, tier := range []string{storage.TierRaw, storage.TierProcessed, storage.TierModels, storage.TierArchive} {
		if err := blob.EnsureBucket(ctx, tier); err != nil {
			log.Fatalf("Failed to ensure bucket %s: %v", tier, err)
		}
	}
	if err := blob.ApplyRawLifecycle(ctx); err != nil {
		log.Printf("WARNING: could not apply raw-tier lifecycle rules: %v", err)
	}

	locks := caching.NewRedisRunLock(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 6*time.Hour)

	provider := scraper.NewProviderClient(cfg.ScrapeAPIURL, cfg.ScrapeUsername, cfg.ScrapePassword)

	registry := plugins.NewRegistry()
	marketplaces.RegisterAll(registry, provider, cfg)

	sellerRepo := repositories.NewSellerRepo(pool)
	productRepo := repositories.NewProductRepo(pool)
	imageRepo := repositories.NewImageRepo(pool)
	labelRepo := repositories.NewLabelRepo(pool)
	reviewRepo := repositories.NewReviewRepo(pool)

	engine := standardize.NewEngine(cfg.Marketplaces)

	var coordinator *labeling.Coordinator
	if cfg.LabelAPIURL != "" {
		labeler := labeling.NewHTTPLabeler(cfg.LabelAPIURL, cfg.LabelAPIKey)
		coordinator = labeling.NewCoordinator(imageRepo, labelRepo, productRepo, blob, labeler, cfg.LabelModelID, cfg.LabelMinProbability)
	} else {
		log.Printf("LABEL_API_URL not set, image labeling disabled")
	}

	runner := pipeline.NewRunner(cfg, registry, provider, blob, engine,
		sellerRepo, productRepo, imageRepo, reviewRepo, locks, coordinator)

	scheduler, err := jobs.NewScheduler(runner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	runHandlers := handlers.NewRunHandlers(runner)

	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", handlers.HealthCheck)
	e.GET("/health/ready", func(c echo.Context) error {
		return handlers.ReadinessCheck(c, pool)
	})

	v1 := e.Group("/v1")
	v1.POST("/runs", runHandlers.TriggerRun)
	v1.GET("/runs/latest", runHandlers.LatestSummaries)

	log.Printf("🚀 marketpipe v%s starting on port %d (marketplaces: %v)", version, cfg.Port, cfg.Marketplaces)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
