// Package pipeline drives resumes through extraction and scoring. All state
// changes go through the record store's guarded writes, so any number of
// workers may call Process concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-screening/internal/extract"
	"resume-screening/internal/jobs"
	"resume-screening/internal/resumes"
	"resume-screening/internal/scoring"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/storage/object"
	"resume-screening/internal/shared/telemetry"
)

const textContentType = "text/plain; charset=utf-8"

// JobSource loads the posting a resume is scored against.
type JobSource interface {
	GetByID(ctx context.Context, id string) (jobs.Job, error)
}

// Orchestrator runs processing attempts.
type Orchestrator struct {
	Repo      resumes.Repo
	Blobs     object.Store
	Extractor extract.TextExtractable
	Scorer    scoring.Scorable
	Jobs      JobSource

	Now   func() time.Time
	NewID func() string
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) newID() string {
	if o.NewID != nil {
		return o.NewID()
	}
	return uuid.NewString()
}

// Process runs one attempt on a PENDING resume.
//
// It returns ErrAlreadyInProgress or ErrNotProcessable without writing when
// the resume cannot be claimed, resumes.ErrStaleAttempt when the attempt was
// superseded mid-flight, and *InfraError when storage failed.
func (o *Orchestrator) Process(ctx context.Context, id string) (Result, error) {
	started := time.Now()
	attemptID := o.newID()

	rec, err := o.claim(ctx, id, attemptID)
	if err != nil {
		return Result{}, err
	}
	metrics.IncProcessingStarted()
	o.logTransition(rec, resumes.StatusPending, resumes.StatusProcessing, resumes.EventProcessingStarted)

	res, err := o.run(ctx, rec, attemptID)
	if err != nil {
		var ie *InfraError
		if errors.As(err, &ie) {
			o.release(ctx, rec.ID, attemptID, "attempt aborted: "+ie.Op)
		}
		return Result{}, err
	}
	metrics.IncOutcome(string(res.Outcome), string(res.Failure))
	metrics.ObserveProcessingDuration(time.Since(started))
	return res, nil
}

func (o *Orchestrator) claim(ctx context.Context, id, attemptID string) (resumes.Resume, error) {
	rec, err := o.Repo.CompareAndTransition(ctx, id, resumes.StatusPending, resumes.StatusProcessing, func(r *resumes.Resume) error {
		now := o.now()
		r.AttemptID = attemptID
		r.StartedAt = &now
		r.ProcessingLog = append(r.ProcessingLog, resumes.LogEntry{Event: resumes.EventProcessingStarted, Timestamp: now})
		return nil
	})
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, resumes.ErrNotFound):
		return resumes.Resume{}, err
	case errors.Is(err, resumes.ErrStatusConflict):
		current, getErr := o.Repo.GetByID(ctx, id)
		if getErr != nil {
			return resumes.Resume{}, infra("load", getErr)
		}
		if current.Status == resumes.StatusProcessing {
			return resumes.Resume{}, ErrAlreadyInProgress
		}
		return resumes.Resume{}, fmt.Errorf("%w: status %s", ErrNotProcessable, current.Status)
	default:
		return resumes.Resume{}, infra("claim", err)
	}
}

func (o *Orchestrator) run(ctx context.Context, rec resumes.Resume, attemptID string) (Result, error) {
	job, err := o.loadJob(ctx, rec.JobID)
	if err != nil {
		return Result{}, err
	}

	textKey := object.TextKey(rec.FilePath)
	text, failure, err := o.extractText(ctx, rec, textKey)
	if err != nil {
		return Result{}, err
	}
	if failure != nil {
		return o.fail(ctx, rec, attemptID, FailureExtraction, failure.Error(), errors.Is(failure, extract.ErrUnsupportedFormat))
	}

	rec, err = o.Repo.AppendLog(ctx, rec.ID, attemptID, resumes.LogEntry{
		Event:     resumes.EventExtracted,
		Timestamp: o.now(),
		Detail:    textKey,
	})
	if err != nil {
		return Result{}, o.writeErr("append extracted", err)
	}

	scored, err := safeScore(ctx, o.Scorer, text, scoring.Job{Title: job.Title, Description: job.Description})
	if err != nil {
		return o.fail(ctx, rec, attemptID, FailureParsing, err.Error(), false)
	}
	if math.IsNaN(scored.Score) || scored.Score < 0 || scored.Score > 1 {
		return o.fail(ctx, rec, attemptID, FailureParsing, fmt.Sprintf("score %v outside [0, 1]", scored.Score), false)
	}
	return o.complete(ctx, rec, attemptID, textKey, scored)
}

func (o *Orchestrator) loadJob(ctx context.Context, jobID string) (jobs.Job, error) {
	if o.Jobs == nil {
		return jobs.Job{}, nil
	}
	job, err := o.Jobs.GetByID(ctx, jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		return jobs.Job{}, nil
	}
	if err != nil {
		return jobs.Job{}, infra("load job", err)
	}
	return job, nil
}

// extractText returns the resume text, reusing text stored by an earlier
// attempt. A non-nil failure is an extraction failure to record; a non-nil
// error is an infrastructure error.
func (o *Orchestrator) extractText(ctx context.Context, rec resumes.Resume, textKey string) (text string, failure, err error) {
	exists, err := o.Blobs.Exists(ctx, textKey)
	if err != nil {
		return "", nil, infra("check text", err)
	}
	if exists {
		data, err := object.ReadAll(ctx, o.Blobs, textKey)
		if err != nil {
			return "", nil, infra("read text", err)
		}
		return string(data), nil, nil
	}

	raw, err := object.ReadAll(ctx, o.Blobs, rec.FilePath)
	if errors.Is(err, object.ErrNotFound) {
		return "", fmt.Errorf("raw file missing: %s", rec.FilePath), nil
	}
	if err != nil {
		return "", nil, infra("read raw", err)
	}

	text, failure = safeExtract(ctx, o.Extractor, extract.Document{
		Data:     raw,
		MimeType: rec.MimeType,
		FileName: rec.FileName,
	})
	if failure != nil {
		return "", failure, nil
	}

	if _, err := o.Blobs.Write(ctx, textKey, textContentType, strings.NewReader(text)); err != nil && !errors.Is(err, object.ErrAlreadyExists) {
		return "", nil, infra("write text", err)
	}
	return text, nil, nil
}

// fail records a failed attempt. The resume returns to PENDING while budget
// remains, otherwise it is FAILED. Permanent failures skip straight to FAILED.
func (o *Orchestrator) fail(ctx context.Context, rec resumes.Resume, attemptID string, kind FailureKind, detail string, permanent bool) (Result, error) {
	event := resumes.EventExtractionFailed
	if kind == FailureParsing {
		event = resumes.EventParsingFailed
	}
	to := resumes.StatusFailed
	if !permanent && rec.RetryCount+1 < rec.MaxRetries {
		to = resumes.StatusPending
	}

	updated, err := o.Repo.CompareAndTransition(ctx, rec.ID, resumes.StatusProcessing, to, func(r *resumes.Resume) error {
		if r.AttemptID != attemptID {
			return resumes.ErrStaleAttempt
		}
		r.RetryCount++
		r.AttemptID = ""
		r.StartedAt = nil
		r.ProcessingLog = append(r.ProcessingLog, resumes.LogEntry{Event: event, Timestamp: o.now(), Detail: detail})
		return nil
	})
	if err != nil {
		return Result{}, o.writeErr("record failure", err)
	}
	o.logTransition(updated, resumes.StatusProcessing, to, event)

	outcome := OutcomeRetryScheduled
	if to == resumes.StatusFailed {
		outcome = OutcomeFailed
	}
	return Result{
		ResumeID:   updated.ID,
		Status:     updated.Status,
		Outcome:    outcome,
		Failure:    kind,
		RetryCount: updated.RetryCount,
		Detail:     detail,
	}, nil
}

func (o *Orchestrator) complete(ctx context.Context, rec resumes.Resume, attemptID, textKey string, scored scoring.Result) (Result, error) {
	score := scored.Score
	parsed := toParsedData(scored)

	updated, err := o.Repo.CompareAndTransition(ctx, rec.ID, resumes.StatusProcessing, resumes.StatusDone, func(r *resumes.Resume) error {
		if r.AttemptID != attemptID {
			return resumes.ErrStaleAttempt
		}
		r.ParsedData = &parsed
		r.Score = &score
		r.TextPath = textKey
		r.AttemptID = ""
		r.StartedAt = nil
		r.ProcessingLog = append(r.ProcessingLog, resumes.LogEntry{Event: resumes.EventCompleted, Timestamp: o.now()})
		return nil
	})
	if err != nil {
		return Result{}, o.writeErr("complete", err)
	}
	o.logTransition(updated, resumes.StatusProcessing, resumes.StatusDone, resumes.EventCompleted)
	return Result{
		ResumeID:   updated.ID,
		Status:     updated.Status,
		Outcome:    OutcomeCompleted,
		RetryCount: updated.RetryCount,
	}, nil
}

// Retry moves a FAILED resume with budget left back to PENDING.
func (o *Orchestrator) Retry(ctx context.Context, id string) (resumes.Resume, error) {
	rec, err := o.Repo.CompareAndTransition(ctx, id, resumes.StatusFailed, resumes.StatusPending, func(r *resumes.Resume) error {
		if !r.RetriesRemaining() {
			return fmt.Errorf("%w: retry budget exhausted", ErrNotProcessable)
		}
		r.ProcessingLog = append(r.ProcessingLog, resumes.LogEntry{
			Event:     resumes.EventRequeued,
			Timestamp: o.now(),
			Detail:    "manual retry",
		})
		return nil
	})
	switch {
	case err == nil:
		o.logTransition(rec, resumes.StatusFailed, resumes.StatusPending, resumes.EventRequeued)
		return rec, nil
	case errors.Is(err, ErrNotProcessable), errors.Is(err, resumes.ErrNotFound):
		return resumes.Resume{}, err
	case errors.Is(err, resumes.ErrStatusConflict):
		return resumes.Resume{}, fmt.Errorf("%w: %v", ErrNotProcessable, err)
	default:
		return resumes.Resume{}, infra("retry", err)
	}
}

// Reclaim moves a PROCESSING resume whose attempt is attemptID back to
// PENDING without consuming retry budget.
func (o *Orchestrator) Reclaim(ctx context.Context, id, attemptID, reason string) (resumes.Resume, error) {
	rec, err := o.Repo.CompareAndTransition(ctx, id, resumes.StatusProcessing, resumes.StatusPending, func(r *resumes.Resume) error {
		if r.AttemptID != attemptID {
			return resumes.ErrStaleAttempt
		}
		r.AttemptID = ""
		r.StartedAt = nil
		r.ProcessingLog = append(r.ProcessingLog, resumes.LogEntry{
			Event:     resumes.EventRequeued,
			Timestamp: o.now(),
			Detail:    reason,
		})
		return nil
	})
	if err != nil {
		return resumes.Resume{}, err
	}
	o.logTransition(rec, resumes.StatusProcessing, resumes.StatusPending, resumes.EventRequeued)
	return rec, nil
}

func (o *Orchestrator) release(ctx context.Context, id, attemptID, reason string) {
	// Storage may still be down; the stale sweep is the fallback.
	if _, err := o.Reclaim(context.WithoutCancel(ctx), id, attemptID, reason); err != nil {
		telemetry.Warn("resume.release.failed", map[string]any{
			"resumeId":   id,
			"attempt_id": attemptID,
			"err":        err,
		})
	}
}

// writeErr classifies a failed guarded write made by a running attempt.
func (o *Orchestrator) writeErr(op string, err error) error {
	if errors.Is(err, resumes.ErrStaleAttempt) || errors.Is(err, resumes.ErrStatusConflict) {
		return fmt.Errorf("%s: %w", op, resumes.ErrStaleAttempt)
	}
	if errors.Is(err, resumes.ErrNotFound) {
		return err
	}
	return infra(op, err)
}

func (o *Orchestrator) logTransition(rec resumes.Resume, from, to resumes.Status, event resumes.Event) {
	telemetry.Info("resume.status", map[string]any{
		"resumeId":          rec.ID,
		"jobId":             rec.JobID,
		"status_transition": resumes.TransitionLabel(from, to),
		"event":             string(event),
		"retry_count":       rec.RetryCount,
		"max_retries":       rec.MaxRetries,
	})
}

func toParsedData(r scoring.Result) resumes.ParsedData {
	return resumes.ParsedData{
		Email:           r.Email,
		Phone:           r.Phone,
		Skills:          nonNil(r.Skills),
		Sections:        r.Sections,
		ExperienceYears: r.ExperienceYears,
		MatchedKeywords: nonNil(r.MatchedKeywords),
		MissingKeywords: r.MissingKeywords,
		WordCount:       r.WordCount,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func safeExtract(ctx context.Context, ex extract.TextExtractable, doc extract.Document) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return ex.Extract(ctx, doc)
}

func safeScore(ctx context.Context, s scoring.Scorable, text string, job scoring.Job) (res scoring.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = scoring.Result{}, fmt.Errorf("scorer panic: %v", r)
		}
	}()
	return s.Score(ctx, text, job)
}
