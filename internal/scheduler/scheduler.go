package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"
)

// WarmFunc loads one data type so its cache is filled.
type WarmFunc func(ctx context.Context, dataType string) error

// Scheduler periodically warms the caches of the configured data types.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warm      WarmFunc
	dataTypes []string
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(dataTypes []string, interval time.Duration, warm WarmFunc) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		warm:      warm,
		dataTypes: dataTypes,
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules the warm-up job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.dataTypes) == 0 || s.interval <= 0 {
		slog.Info("scheduler: cache warm-up disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		if err := s.RunOnce(context.Background()); err != nil {
			slog.Warn("scheduler: cache warm-up incomplete", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce warms every data type concurrently and returns the first failure.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	slog.Debug("scheduler: running cache warm-up job")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var g errgroup.Group
	for _, dataType := range s.dataTypes {
		dataType := dataType
		g.Go(func() error {
			if err := s.warm(ctx, dataType); err != nil {
				slog.Warn("scheduler: warm-up failed", "dataType", dataType, "error", err)
				return err
			}
			return nil
		})
	}
	err := g.Wait()

	slog.Debug("scheduler: completed cache warm-up job")
	return err
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
