package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"resume-screening/internal/jobs"
	"resume-screening/internal/queue"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/storage/object"
	"resume-screening/internal/shared/telemetry"
	"resume-screening/internal/shared/util"
)

// MaxUploadBytes caps a single resume upload.
const MaxUploadBytes = 10 << 20

// JobLookup resolves a job the caller owns.
type JobLookup interface {
	GetOwned(ctx context.Context, userID, jobID string) (jobs.Job, error)
}

// Service handles resume ingestion and read access.
type Service struct {
	Repo         Repo
	Jobs         JobLookup
	Blobs        object.Store
	Queue        queue.Client
	QueueBackend string
	MaxRetries   int
	Now          func() time.Time
}

// UploadInput describes one uploaded file.
type UploadInput struct {
	UserID    string
	JobID     string
	FileName  string
	MimeHint  string
	RequestID string
	Body      io.Reader
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Upload stores the raw file, creates a PENDING record and enqueues it for
// processing. Enqueue failures are logged but do not fail the upload: the
// record stays PENDING and the sweeper re-enqueues it.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Resume, error) {
	fileName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Resume{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.Jobs.GetOwned(ctx, in.UserID, in.JobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return Resume{}, ErrJobNotFound
		}
		return Resume{}, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, MaxUploadBytes+1))
	if err != nil {
		return Resume{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Resume{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return Resume{}, ErrTooLarge
	}

	mimeType := mimetype.Detect(data).String()
	if mimeType == "application/octet-stream" && in.MimeHint != "" {
		mimeType = in.MimeHint
	}

	now := s.now()
	key := object.RawKey(in.UserID, in.JobID, fileName, now)
	size, err := s.Blobs.Write(ctx, key, mimeType, bytes.NewReader(data))
	if err != nil {
		return Resume{}, fmt.Errorf("store upload: %w", err)
	}

	maxRetries := s.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	r := Resume{
		ID:            uuid.NewString(),
		JobID:         in.JobID,
		UserID:        in.UserID,
		FilePath:      key,
		FileName:      fileName,
		MimeType:      mimeType,
		SizeBytes:     size,
		Status:        StatusPending,
		MaxRetries:    maxRetries,
		ProcessingLog: []LogEntry{{Event: EventUploaded, Timestamp: now}},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		// The raw blob is left behind; its key is never reused.
		telemetry.Warn("resume.upload.orphaned_blob", map[string]any{
			"key":        key,
			"jobId":      in.JobID,
			"request_id": in.RequestID,
			"err":        err,
		})
		return Resume{}, err
	}
	metrics.IncUpload()

	err = s.Queue.Send(ctx, queue.NewMessage(r.ID, in.RequestID, 0))
	metrics.IncEnqueued(s.QueueBackend, err)
	if err != nil {
		telemetry.Warn("resume.enqueue.failed", map[string]any{
			"resumeId":   r.ID,
			"jobId":      r.JobID,
			"request_id": in.RequestID,
			"err":        err,
		})
	}
	return r, nil
}

// Get returns a resume owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Resume, error) {
	r, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	if r.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return r, nil
}

// ListByJob lists resumes for a job the caller owns, newest first.
func (s *Service) ListByJob(ctx context.Context, userID, jobID string, limit, offset int) ([]Resume, error) {
	if _, err := s.Jobs.GetOwned(ctx, userID, jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return s.Repo.ListByJob(ctx, jobID, limit, offset)
}
