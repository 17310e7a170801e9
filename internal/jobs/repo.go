package jobs

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	ListByOwner(ctx context.Context, userID string, limit, offset int) ([]Job, error)
}
