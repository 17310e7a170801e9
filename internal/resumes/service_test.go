package resumes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-screening/internal/jobs"
	"resume-screening/internal/queue"
	"resume-screening/internal/shared/storage/object"
	"resume-screening/internal/shared/storage/object/local"
	"resume-screening/internal/shared/telemetry"
)

type recordingQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (q *recordingQueue) Send(_ context.Context, msg queue.Message, _ ...queue.SendOption) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepo
	blobs *local.Store
	queue *recordingQueue
	job   jobs.Job
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	jobSvc := jobs.NewService(jobs.NewMemoryRepo())
	job, err := jobSvc.Create(context.Background(), "owner", "Backend Engineer", "Go and Postgres")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	repo := NewMemoryRepo()
	blobs := local.New(t.TempDir())
	q := &recordingQueue{}
	svc := &Service{
		Repo:         repo,
		Jobs:         jobSvc,
		Blobs:        blobs,
		Queue:        q,
		QueueBackend: "inline",
		MaxRetries:   3,
		Now:          func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return fixture{svc: svc, repo: repo, blobs: blobs, queue: q, job: job}
}

func TestUploadCreatesPendingRecordAndEnqueues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, UploadInput{
		UserID:    "owner",
		JobID:     f.job.ID,
		FileName:  "cv.txt",
		RequestID: "req-1",
		Body:      strings.NewReader("Jane Doe\nGo developer"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if res.Status != StatusPending || res.RetryCount != 0 || res.MaxRetries != 3 {
		t.Fatalf("unexpected record: %+v", res)
	}
	if len(res.ProcessingLog) != 1 || res.ProcessingLog[0].Event != EventUploaded {
		t.Fatalf("expected [uploaded] log, got %+v", res.ProcessingLog)
	}
	if !strings.HasPrefix(res.FilePath, "resumes/raw/owner_"+f.job.ID+"_") || !strings.HasSuffix(res.FilePath, ".txt") {
		t.Fatalf("unexpected file path %q", res.FilePath)
	}
	if !strings.HasPrefix(res.MimeType, "text/plain") {
		t.Fatalf("expected sniffed text/plain, got %q", res.MimeType)
	}

	data, err := object.ReadAll(ctx, f.blobs, res.FilePath)
	if err != nil || !bytes.Equal(data, []byte("Jane Doe\nGo developer")) {
		t.Fatalf("raw blob mismatch: %q %v", data, err)
	}

	stored, err := f.repo.GetByID(ctx, res.ID)
	if err != nil || stored.Status != StatusPending {
		t.Fatalf("stored record: %+v %v", stored, err)
	}

	if len(f.queue.msgs) != 1 || f.queue.msgs[0].ResumeID != res.ID || f.queue.msgs[0].RequestID != "req-1" {
		t.Fatalf("unexpected queue messages: %+v", f.queue.msgs)
	}
}

func TestUploadRejectsForeignJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Upload(context.Background(), UploadInput{
		UserID:   "stranger",
		JobID:    f.job.ID,
		FileName: "cv.txt",
		Body:     strings.NewReader("text"),
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadInput{UserID: "owner", JobID: f.job.ID, FileName: "cv.txt", Body: strings.NewReader("")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty file: expected ErrInvalidInput, got %v", err)
	}

	_, err = f.svc.Upload(ctx, UploadInput{UserID: "owner", JobID: f.job.ID, FileName: "../etc/passwd", Body: strings.NewReader("x")})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("traversal name: expected ErrInvalidInput, got %v", err)
	}

	big := bytes.Repeat([]byte("a"), MaxUploadBytes+1)
	_, err = f.svc.Upload(ctx, UploadInput{UserID: "owner", JobID: f.job.ID, FileName: "cv.txt", Body: bytes.NewReader(big)})
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("oversized: expected ErrTooLarge, got %v", err)
	}
}

func TestUploadSurvivesEnqueueFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.err = errors.New("broker down")

	res, err := f.svc.Upload(context.Background(), UploadInput{
		UserID: "owner", JobID: f.job.ID, FileName: "cv.txt", Body: strings.NewReader("text"),
	})
	if err != nil {
		t.Fatalf("upload should not fail on enqueue error: %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("expected PENDING, got %s", res.Status)
	}
}

type failingCreateRepo struct {
	*MemoryRepo
	err error
}

func (r failingCreateRepo) Create(context.Context, Resume) error { return r.err }

func TestUploadLogsOrphanedBlobWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	var logs bytes.Buffer
	telemetry.SetOutput(&logs)
	f.svc.Repo = failingCreateRepo{MemoryRepo: f.repo, err: ErrJobNotFound}

	_, err := f.svc.Upload(context.Background(), UploadInput{
		UserID:   "owner",
		JobID:    f.job.ID,
		FileName: "cv.txt",
		Body:     strings.NewReader("Jane Doe\nGo developer"),
	})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if len(f.queue.msgs) != 0 {
		t.Fatalf("nothing should be enqueued without a record")
	}

	out := logs.String()
	if !strings.Contains(out, "resume.upload.orphaned_blob") {
		t.Fatalf("expected orphaned blob warning, got %q", out)
	}
	start := strings.Index(out, `"key":"`)
	if start < 0 {
		t.Fatalf("orphaned blob key not logged: %q", out)
	}
	key := out[start+len(`"key":"`):]
	key = key[:strings.Index(key, `"`)]
	ok, err := f.blobs.Exists(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("expected logged key %q to exist in the store (ok=%v err=%v)", key, ok, err)
	}
}

func TestGetAndListEnforceOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Upload(ctx, UploadInput{UserID: "owner", JobID: f.job.ID, FileName: "cv.txt", Body: strings.NewReader("text")})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := f.svc.Get(ctx, "owner", res.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := f.svc.Get(ctx, "stranger", res.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger get: expected ErrNotFound, got %v", err)
	}

	items, err := f.svc.ListByJob(ctx, "owner", f.job.ID, 10, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("owner list: %v %+v", err, items)
	}
	if _, err := f.svc.ListByJob(ctx, "stranger", f.job.ID, 10, 0); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("stranger list: expected ErrJobNotFound, got %v", err)
	}
}
