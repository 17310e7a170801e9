package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxTitleLen = 255

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Create stores a new job owned by userID.
func (s *Service) Create(ctx context.Context, userID, title, description string) (Job, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLen {
		return Job{}, fmt.Errorf("%w: title is required and must be at most %d characters", ErrInvalidInput, maxTitleLen)
	}
	job := Job{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedBy:   userID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetOwned returns the job if userID owns it. Jobs owned by someone else are
// reported as ErrNotFound.
func (s *Service) GetOwned(ctx context.Context, userID, jobID string) (Job, error) {
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if job.CreatedBy != userID {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	return s.Repo.ListByOwner(ctx, userID, limit, offset)
}
