package resumes

import (
	"fmt"
	"strings"
	"time"
)

var edges = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusPending, StatusDone, StatusFailed},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionLabel formats an edge for logs, e.g. "pending->processing".
func TransitionLabel(from, to Status) string {
	return strings.ToLower(string(from)) + "->" + strings.ToLower(string(to))
}

// Mutator edits a copy of the record during a guarded transition. It must
// append exactly one log entry.
type Mutator func(*Resume) error

// applyTransition validates and applies a guarded transition to current and
// returns the record to persist. Every repository implementation goes
// through it.
func applyTransition(current Resume, from, to Status, mutate Mutator, now time.Time) (Resume, error) {
	if current.Status != from {
		return Resume{}, fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, from, current.Status)
	}
	if !CanTransition(from, to) {
		return Resume{}, fmt.Errorf("%w: %s", ErrIllegalTransition, TransitionLabel(from, to))
	}

	next := current.Clone()
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return Resume{}, err
		}
	}
	next.Status = to

	if err := checkLogAppend(current.ProcessingLog, next.ProcessingLog, 1); err != nil {
		return Resume{}, err
	}
	if err := checkImmutable(current, next); err != nil {
		return Resume{}, err
	}
	if err := checkRecord(next); err != nil {
		return Resume{}, err
	}

	next.Version = current.Version + 1
	next.UpdatedAt = now
	return next, nil
}

// applyAppend appends entry to a PROCESSING record owned by attemptID.
func applyAppend(current Resume, attemptID string, entry LogEntry, now time.Time) (Resume, error) {
	if current.Status != StatusProcessing {
		return Resume{}, fmt.Errorf("%w: expected %s, found %s", ErrStatusConflict, StatusProcessing, current.Status)
	}
	if current.AttemptID != attemptID {
		return Resume{}, ErrStaleAttempt
	}
	if entry.Event == "" {
		return Resume{}, fmt.Errorf("%w: event is required", ErrLogInvariant)
	}
	next := current.Clone()
	next.ProcessingLog = append(next.ProcessingLog, entry)
	next.Version = current.Version + 1
	next.UpdatedAt = now
	return next, nil
}

func checkLogAppend(before, after []LogEntry, want int) error {
	if len(after) != len(before)+want {
		return fmt.Errorf("%w: expected %d new entries, got %d", ErrLogInvariant, want, len(after)-len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			return fmt.Errorf("%w: entry %d rewritten", ErrLogInvariant, i)
		}
	}
	for _, entry := range after[len(before):] {
		if entry.Event == "" || entry.Timestamp.IsZero() {
			return fmt.Errorf("%w: entry needs event and timestamp", ErrLogInvariant)
		}
	}
	return nil
}

func checkImmutable(before, after Resume) error {
	if before.ID != after.ID ||
		before.JobID != after.JobID ||
		before.UserID != after.UserID ||
		before.FilePath != after.FilePath ||
		before.MaxRetries != after.MaxRetries ||
		!before.CreatedAt.Equal(after.CreatedAt) {
		return fmt.Errorf("%w: immutable field changed", ErrRecordInvariant)
	}
	return nil
}

func checkRecord(r Resume) error {
	if r.RetryCount < 0 || r.RetryCount > r.MaxRetries {
		return fmt.Errorf("%w: retry_count %d outside [0, %d]", ErrRecordInvariant, r.RetryCount, r.MaxRetries)
	}
	done := r.Status == StatusDone
	if done != (r.ParsedData != nil) || done != (r.Score != nil) {
		return fmt.Errorf("%w: parsed_data and score must be set iff DONE", ErrRecordInvariant)
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 1) {
		return fmt.Errorf("%w: score %.3f outside [0, 1]", ErrRecordInvariant, *r.Score)
	}
	return nil
}

// validateNew checks a record about to be created.
func validateNew(r Resume) error {
	switch {
	case r.ID == "", r.JobID == "", r.UserID == "", r.FilePath == "":
		return fmt.Errorf("%w: id, job_id, user_id and file_path are required", ErrInvalidInput)
	case r.Status != StatusPending:
		return fmt.Errorf("%w: new resumes start PENDING", ErrInvalidInput)
	case r.MaxRetries <= 0:
		return fmt.Errorf("%w: max_retries must be positive", ErrInvalidInput)
	case r.RetryCount != 0:
		return fmt.Errorf("%w: retry_count starts at 0", ErrInvalidInput)
	case len(r.ProcessingLog) != 1 || r.ProcessingLog[0].Event != EventUploaded:
		return fmt.Errorf("%w: log must start with a single uploaded entry", ErrInvalidInput)
	}
	return checkRecord(r)
}
