package pipeline

import (
	"context"
	"errors"
	"time"

	"resume-screening/internal/queue"
	"resume-screening/internal/resumes"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/telemetry"
)

// Runner connects the orchestrator to a queue: it consumes process messages
// and re-enqueues resumes that still have retries left.
type Runner struct {
	Orch    *Orchestrator
	Queue   queue.Client
	Backend string
	// Backoff is multiplied by the retry count to delay the next attempt.
	Backoff time.Duration
}

// Handle processes one message. Messages for resumes that cannot be claimed
// are acknowledged and dropped; only infrastructure errors are returned.
func (r *Runner) Handle(ctx context.Context, msg queue.Message) error {
	fields := map[string]any{
		"resumeId":   msg.ResumeID,
		"request_id": msg.RequestID,
		"attempt":    msg.Attempt,
	}

	res, err := r.Orch.Process(ctx, msg.ResumeID)
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyInProgress),
		errors.Is(err, ErrNotProcessable),
		errors.Is(err, resumes.ErrStaleAttempt),
		errors.Is(err, resumes.ErrNotFound):
		fields["reason"] = err.Error()
		telemetry.Info("resume.process.skipped", fields)
		return nil
	default:
		fields["err"] = err
		telemetry.Error("resume.process.error", fields)
		return err
	}

	fields["outcome"] = string(res.Outcome)
	fields["retry_count"] = res.RetryCount
	if res.Failure != FailureNone {
		fields["failure"] = string(res.Failure)
		fields["detail"] = res.Detail
	}
	telemetry.Info("resume.process.done", fields)

	if res.Outcome == OutcomeRetryScheduled {
		delay := r.Backoff * time.Duration(res.RetryCount)
		r.enqueue(ctx, queue.NewMessage(res.ResumeID, msg.RequestID, res.RetryCount), delay)
	}
	return nil
}

// Retry re-opens a FAILED resume and enqueues it. It satisfies resumes.Retrier.
func (r *Runner) Retry(ctx context.Context, id, requestID string) (resumes.Resume, error) {
	rec, err := r.Orch.Retry(ctx, id)
	if err != nil {
		return resumes.Resume{}, err
	}
	metrics.IncManualRetry()
	r.enqueue(ctx, queue.NewMessage(rec.ID, requestID, rec.RetryCount), 0)
	return rec, nil
}

// enqueue logs send failures instead of returning them: the resume is
// already PENDING and the sweeper re-enqueues orphaned records.
func (r *Runner) enqueue(ctx context.Context, msg queue.Message, delay time.Duration) {
	err := r.Queue.Send(ctx, msg, queue.WithDelay(delay))
	metrics.IncEnqueued(r.Backend, err)
	if err != nil {
		telemetry.Warn("resume.enqueue.failed", map[string]any{
			"resumeId":   msg.ResumeID,
			"request_id": msg.RequestID,
			"err":        err,
		})
	}
}

var _ resumes.Retrier = (*Runner)(nil)
