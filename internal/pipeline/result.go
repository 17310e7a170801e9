package pipeline

import (
	"fmt"

	"resume-screening/internal/resumes"
)

// Outcome classifies a finished processing attempt.
type Outcome string

const (
	OutcomeCompleted      Outcome = "completed"
	OutcomeRetryScheduled Outcome = "retry_scheduled"
	OutcomeFailed         Outcome = "failed"
)

// FailureKind records which stage failed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureExtraction FailureKind = "extraction"
	FailureParsing    FailureKind = "parsing"
)

// Result describes a committed attempt. Extraction and parsing failures are
// results, not errors.
type Result struct {
	ResumeID   string
	Status     resumes.Status
	Outcome    Outcome
	Failure    FailureKind
	RetryCount int
	Detail     string
}

var (
	// ErrAlreadyInProgress means another attempt owns the resume.
	ErrAlreadyInProgress = fmt.Errorf("%w: processing already in progress", resumes.ErrStatusConflict)
	// ErrNotProcessable means the resume is DONE, terminally FAILED, or FAILED
	// without an explicit retry.
	ErrNotProcessable = fmt.Errorf("%w: resume is not processable", resumes.ErrStatusConflict)
)

// InfraError wraps a storage failure that aborted an attempt before its next
// write committed.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error { return e.Err }

func infra(op string, err error) error {
	return &InfraError{Op: op, Err: err}
}
