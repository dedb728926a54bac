package scheduler

import (
	"context"
	"time"

	"sipwatcher/internal/ports"
)

// IntervalScheduler triggers the job immediately and then on a fixed cadence.
type IntervalScheduler struct {
	interval time.Duration
	stop     chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler with the given run cadence.
func NewIntervalScheduler(interval time.Duration) *IntervalScheduler {
	return &IntervalScheduler{interval: interval}
}

// Start begins ticking. The first run fires right away so a fresh deploy
// does not wait a full interval before checking the site.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || s.interval <= 0 {
		return nil
	}

	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
