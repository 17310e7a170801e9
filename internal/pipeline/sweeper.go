package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/lthibault/jitterbug/v2"

	"resume-screening/internal/queue"
	"resume-screening/internal/resumes"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/telemetry"
)

const defaultSweepBatch = 100

// Sweeper reclaims attempts that crashed mid-flight and re-enqueues PENDING
// resumes whose message was lost.
type Sweeper struct {
	Repo       resumes.Repo
	Orch       *Orchestrator
	Queue      queue.Client
	Backend    string
	StaleAfter time.Duration
	Interval   time.Duration
	BatchSize  int
	Now        func() time.Time
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Reclaimed  int
	Requeued   int
	Conflicted int
}

// Run sweeps on a jittered ticker until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := jitterbug.New(interval, &jitterbug.Norm{Stdev: interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				telemetry.Error("resume.sweep.failed", map[string]any{"err": err})
			}
		}
	}
}

// SweepOnce reclaims stale PROCESSING resumes and re-enqueues idle PENDING ones.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepStats, error) {
	var stats SweepStats
	cutoff := s.now().Add(-s.staleAfter())

	stale, err := s.Repo.ListStale(ctx, cutoff, s.batch())
	if err != nil {
		return stats, err
	}
	for _, rec := range stale {
		updated, err := s.Orch.Reclaim(ctx, rec.ID, rec.AttemptID, "stale attempt reclaimed")
		if err != nil {
			if errors.Is(err, resumes.ErrStatusConflict) || errors.Is(err, resumes.ErrStaleAttempt) {
				stats.Conflicted++
				continue
			}
			return stats, err
		}
		stats.Reclaimed++
		s.enqueue(ctx, updated)
	}
	metrics.IncStaleRequeued(stats.Reclaimed)

	pending, err := s.Repo.ListPending(ctx, cutoff, s.batch())
	if err != nil {
		return stats, err
	}
	for _, rec := range pending {
		s.enqueue(ctx, rec)
		stats.Requeued++
	}

	if stats.Reclaimed > 0 || stats.Requeued > 0 || stats.Conflicted > 0 {
		telemetry.Info("resume.sweep", map[string]any{
			"reclaimed":  stats.Reclaimed,
			"requeued":   stats.Requeued,
			"conflicted": stats.Conflicted,
		})
	}
	return stats, nil
}

func (s *Sweeper) enqueue(ctx context.Context, rec resumes.Resume) {
	err := s.Queue.Send(ctx, queue.NewMessage(rec.ID, "", rec.RetryCount))
	metrics.IncEnqueued(s.Backend, err)
	if err != nil {
		telemetry.Warn("resume.enqueue.failed", map[string]any{"resumeId": rec.ID, "err": err})
	}
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sweeper) staleAfter() time.Duration {
	if s.StaleAfter > 0 {
		return s.StaleAfter
	}
	return 15 * time.Minute
}

func (s *Sweeper) batch() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return defaultSweepBatch
}
