package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/domain/playlist"
)

// DefaultInterval between scheduled capture runs.
const DefaultInterval = 30 * time.Second

// Scheduler runs the pipeline on a fixed interval. Runs never overlap: if a
// run outlasts the interval, the next tick is dropped.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	running  atomic.Bool
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// DefaultInterval.
func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		pipeline: p,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled, capturing once immediately and then on
// every tick.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Capture scheduler started")

	s.tryRun(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Capture scheduler stopped")
			return
		case <-ticker.C:
			s.tryRun(ctx)
		}
	}
}

func (s *Scheduler) tryRun(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("Previous capture run still in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	s.pipeline.Run(ctx, playlist.CaptureScheduled)
}
