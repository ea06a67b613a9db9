package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"marketpipe/internal/pipeline"
)

// Scheduler runs the nightly ingestion. Singleton mode keeps a slow run from
// overlapping the next trigger.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func NewScheduler(runner *pipeline.Runner) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(func() {
			date := time.Now().Format("2006-01-02")
			log.Printf("scheduler: starting nightly run for %s", date)
			runner.Run(context.Background(), date, pipeline.ModeScrape)
		}),
		gocron.WithName("nightly-ingestion"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{scheduler: scheduler}, nil
}

func (s *Scheduler) Start() {
	log.Printf("Starting background job scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return s.scheduler.Shutdown()
}
