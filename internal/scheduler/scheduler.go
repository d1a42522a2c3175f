package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/tidal-acquisition/internal/weather"
)

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	Kinds() []weather.Kind
	Current(ctx context.Context, kind weather.Kind) []weather.Record
}

// Scheduler periodically asks the service for every kind so snapshots stay
// warm between API calls.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(service Refresher, interval, timeout time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// a slow refresh never overlaps the next run of the same kind
	s.SingletonModeAll()

	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules one job per kind and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	kinds := s.service.Kinds()
	if len(kinds) == 0 {
		log.Println("scheduler: no pipelines configured; nothing to schedule")
		return nil
	}

	for _, kind := range kinds {
		_, err := s.scheduler.Every(s.interval).Tag(string(kind)).Do(s.refresh, kind)
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	log.Printf("INFO: scheduler: refreshing %d kinds every %s", len(kinds), s.interval)
	return nil
}

func (s *Scheduler) refresh(kind weather.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	records := s.service.Current(ctx, kind)
	log.Printf("DEBUG: scheduler: %s has %d records", kind, len(records))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
