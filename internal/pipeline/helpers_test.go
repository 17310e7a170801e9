package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"resume-screening/internal/extract"
	"resume-screening/internal/jobs"
	"resume-screening/internal/queue"
	"resume-screening/internal/resumes"
	"resume-screening/internal/scoring"
	"resume-screening/internal/shared/storage/object"
	"resume-screening/internal/shared/storage/object/local"
	"resume-screening/internal/shared/telemetry"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// scriptedExtractor fails its first `failures` calls. Call number blockOn
// signals entered and then waits for release.
type scriptedExtractor struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
	text     string
	panics   bool

	blockOn int
	entered chan struct{}
	release chan struct{}
}

func (s *scriptedExtractor) Extract(ctx context.Context, _ extract.Document) (string, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.blockOn == n {
		close(s.entered)
		<-s.release
	}
	if s.panics {
		panic("boom")
	}
	if n <= s.failures {
		if s.err != nil {
			return "", s.err
		}
		return "", errors.New("corrupt document")
	}
	if s.text == "" {
		return "Jane Doe. Go, PostgreSQL and Kubernetes.", nil
	}
	return s.text, nil
}

func (s *scriptedExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type scriptedScorer struct {
	mu       sync.Mutex
	calls    int
	failures int
	panics   bool
	score    float64
}

func (s *scriptedScorer) Score(_ context.Context, text string, _ scoring.Job) (scoring.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.panics {
		panic("scorer exploded")
	}
	if n <= s.failures {
		return scoring.Result{}, errors.New("unparseable text")
	}
	score := s.score
	if score == 0 {
		score = 0.75
	}
	return scoring.Result{Score: score, Skills: []string{"go"}, WordCount: len(strings.Fields(text))}, nil
}

type recordingQueue struct {
	mu     sync.Mutex
	msgs   []queue.Message
	delays []time.Duration
	err    error
}

func (q *recordingQueue) Send(_ context.Context, msg queue.Message, opts ...queue.SendOption) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	var o queue.SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	q.msgs = append(q.msgs, msg)
	q.delays = append(q.delays, o.Delay)
	return nil
}

// failingStore wraps a store and fails Exists while failExists is set.
type failingStore struct {
	object.Store
	mu         sync.Mutex
	failExists bool
}

func (f *failingStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	fail := f.failExists
	f.mu.Unlock()
	if fail {
		return false, errors.New("storage unavailable")
	}
	return f.Store.Exists(ctx, key)
}

type testEnv struct {
	orch  *Orchestrator
	repo  *resumes.MemoryRepo
	blobs object.Store
	clock *fakeClock
	job   jobs.Job
}

func newTestEnv(t *testing.T, ex extract.TextExtractable, sc scoring.Scorable) *testEnv {
	t.Helper()
	telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(os.Stdout) })

	clock := newFakeClock()
	repo := resumes.NewMemoryRepo()
	repo.SetClock(clock.Now)

	jobRepo := jobs.NewMemoryRepo()
	job := jobs.Job{ID: uuid.NewString(), Title: "Backend Engineer", Description: "Go and PostgreSQL", CreatedBy: "user-1", CreatedAt: clock.Now()}
	require.NoError(t, jobRepo.Create(context.Background(), job))

	blobs := local.New(t.TempDir())
	return &testEnv{
		orch: &Orchestrator{
			Repo:      repo,
			Blobs:     blobs,
			Extractor: ex,
			Scorer:    sc,
			Jobs:      jobRepo,
			Now:       clock.Now,
		},
		repo:  repo,
		blobs: blobs,
		clock: clock,
		job:   job,
	}
}

func (e *testEnv) seed(t *testing.T, fileName string, data []byte) resumes.Resume {
	t.Helper()
	ctx := context.Background()
	now := e.clock.Now()
	key := object.RawKey("user-1", e.job.ID, fileName, now)
	_, err := e.blobs.Write(ctx, key, "application/octet-stream", strings.NewReader(string(data)))
	require.NoError(t, err)

	rec := resumes.Resume{
		ID:            uuid.NewString(),
		JobID:         e.job.ID,
		UserID:        "user-1",
		FilePath:      key,
		FileName:      fileName,
		MimeType:      "text/plain",
		SizeBytes:     int64(len(data)),
		Status:        resumes.StatusPending,
		MaxRetries:    3,
		ProcessingLog: []resumes.LogEntry{{Event: resumes.EventUploaded, Timestamp: now}},
		CreatedAt:     now,
	}
	require.NoError(t, e.repo.Create(ctx, rec))
	return rec
}

func (e *testEnv) get(t *testing.T, id string) resumes.Resume {
	t.Helper()
	rec, err := e.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func events(rec resumes.Resume) []resumes.Event {
	out := make([]resumes.Event, 0, len(rec.ProcessingLog))
	for _, entry := range rec.ProcessingLog {
		out = append(out, entry.Event)
	}
	return out
}

func countEvent(rec resumes.Resume, ev resumes.Event) int {
	n := 0
	for _, entry := range rec.ProcessingLog {
		if entry.Event == ev {
			n++
		}
	}
	return n
}

// processUntilSettled runs Process until the resume leaves PENDING.
func processUntilSettled(t *testing.T, e *testEnv, id string) []Result {
	t.Helper()
	var results []Result
	for i := 0; i < 10; i++ {
		res, err := e.orch.Process(context.Background(), id)
		require.NoError(t, err)
		results = append(results, res)
		if res.Outcome != OutcomeRetryScheduled {
			return results
		}
	}
	t.Fatalf("resume %s never settled", id)
	return nil
}
