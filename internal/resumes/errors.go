package resumes

import "errors"

var (
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStatusConflict means the stored status differs from the expected one.
	ErrStatusConflict = errors.New("resume status conflict")
	// ErrIllegalTransition means the requested edge is not in the state machine.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrLogInvariant means a mutation did not append exactly one log entry
	// or rewrote history.
	ErrLogInvariant = errors.New("processing log invariant violated")
	// ErrRecordInvariant means a mutation broke a field-level invariant.
	ErrRecordInvariant = errors.New("resume invariant violated")
	// ErrStaleAttempt means the caller's attempt id no longer owns the record.
	ErrStaleAttempt = errors.New("stale processing attempt")
)

var (
	// ErrJobNotFound means the target job is missing or owned by someone else.
	ErrJobNotFound = errors.New("job not found")
	// ErrTooLarge means the upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("file too large")
)
