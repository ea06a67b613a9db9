package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"marketpipe/internal/pipeline"
)

type RunHandlers struct {
	runner *pipeline.Runner
}

func NewRunHandlers(runner *pipeline.Runner) *RunHandlers {
	return &RunHandlers{runner: runner}
}

// TriggerRun starts a pipeline run in the background and returns immediately.
// Query params: date (default today), mode (scrape|reprocess).
func (h *RunHandlers) TriggerRun(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
	}

	mode := pipeline.ModeScrape
	switch c.QueryParam("mode") {
	case "", "scrape":
	case "reprocess":
		mode = pipeline.ModeReprocess
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "mode must be scrape or reprocess"})
	}

	go h.runner.Run(context.Background(), date, mode)

	return c.JSON(http.StatusAccepted, map[string]string{
		"status": "started",
		"date":   date,
		"mode":   string(mode),
	})
}

// LatestSummaries returns the per-marketplace summaries of the most recent run.
func (h *RunHandlers) LatestSummaries(c echo.Context) error {
	date, summaries := h.runner.LastSummaries()
	if date == "" {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no run has completed yet"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"date":         date,
		"marketplaces": summaries,
	})
}
