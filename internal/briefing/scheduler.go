package briefing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// MinInterval is the minimum allowed rebuild interval.
const MinInterval = 15 * time.Minute

// buildTimeout bounds one scheduled build.
const buildTimeout = 10 * time.Minute

// Scheduler rebuilds the briefing periodically.
type Scheduler struct {
	builder  *Builder
	path     string
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a background scheduler. Intervals below MinInterval
// are raised to it.
func NewScheduler(builder *Builder, path string, interval time.Duration) *Scheduler {
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Scheduler{
		builder:  builder,
		path:     path,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Interval returns the effective rebuild interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins the rebuild loop. The first build runs immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			slog.Info("Scheduler: rebuilding briefing", "interval", s.interval)

			ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
			_, err := s.builder.TryPublish(ctx, s.path)
			cancel()

			switch {
			case errors.Is(err, ErrBuildInProgress):
				slog.Info("Scheduler: build already running, skipping")
			case err != nil:
				slog.Error("Scheduler: publish failed", "error", err)
			}

			select {
			case <-s.stopChan:
				return
			case <-time.After(s.interval):
			}
		}
	}()
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
