// Package scheduler runs the workflow triggers on fixed intervals. Each job
// has its own goroutine, so a slow escalation scan never delays reply
// polling; runs of the same job never overlap.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Job is one periodic trigger.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs Jobs until its context is cancelled.
type Scheduler struct {
	Jobs []Job
	Log  zerolog.Logger

	// RunOnStart runs every job once before waiting for the first tick.
	RunOnStart bool
}

// Run blocks until ctx is done and returns nil on a normal shutdown. Job
// errors are logged and the job keeps its schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	started := 0
	for _, j := range s.Jobs {
		if j.Interval <= 0 || j.Run == nil {
			s.Log.Info().Str("job", j.Name).Msg("job disabled")
			continue
		}
		j := j
		started++
		g.Go(func() error { return s.loop(ctx, j) })
	}
	s.Log.Info().Int("jobs", started).Msg("scheduler started")
	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, j Job) error {
	log := s.Log.With().Str("job", j.Name).Logger()
	if s.RunOnStart {
		s.runOnce(ctx, j, log)
	}
	t := time.NewTicker(j.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx, j, log)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job, log zerolog.Logger) {
	start := time.Now()
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("job finished")
}
