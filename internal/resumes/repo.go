package resumes

import (
	"context"
	"time"
)

// Repo is the durable store of resume records and the single source of
// truth for pipeline state. State changes only go through
// CompareAndTransition and AppendLog.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	GetByID(ctx context.Context, id string) (Resume, error)
	// CompareAndTransition atomically moves id from `from` to `to`, applying
	// mutate to a copy of the record. It fails with ErrStatusConflict and
	// writes nothing when the stored status is not `from`.
	CompareAndTransition(ctx context.Context, id string, from, to Status, mutate Mutator) (Resume, error)
	// AppendLog appends an entry to a PROCESSING record still owned by attemptID.
	AppendLog(ctx context.Context, id, attemptID string, entry LogEntry) (Resume, error)
	ListByJob(ctx context.Context, jobID string, limit, offset int) ([]Resume, error)
	// ListStale returns PROCESSING records whose attempt started before cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error)
	// ListPending returns PENDING records not touched since cutoff.
	ListPending(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error)
}
