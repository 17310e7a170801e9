package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-process Repo for dev and tests.
type MemoryRepo struct {
	mu      sync.Mutex
	resumes map[string]Resume
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		resumes: make(map[string]Resume),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, res Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateNew(res); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resumes[res.ID]; ok {
		return ErrInvalidInput
	}
	now := r.now()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	res.Version = 1
	r.resumes[res.ID] = res.Clone()
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return res.Clone(), nil
}

func (r *MemoryRepo) CompareAndTransition(ctx context.Context, id string, from, to Status, mutate Mutator) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	next, err := applyTransition(current, from, to, mutate, r.now())
	if err != nil {
		return Resume{}, err
	}
	r.resumes[id] = next
	return next.Clone(), nil
}

func (r *MemoryRepo) AppendLog(ctx context.Context, id, attemptID string, entry LogEntry) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.resumes[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	next, err := applyAppend(current, attemptID, entry, r.now())
	if err != nil {
		return Resume{}, err
	}
	r.resumes[id] = next
	return next.Clone(), nil
}

func (r *MemoryRepo) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]Resume, error) {
	return r.list(ctx, func(res Resume) bool { return res.JobID == jobID }, limit, offset, newestFirst)
}

func (r *MemoryRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error) {
	return r.list(ctx, func(res Resume) bool {
		return res.Status == StatusProcessing && res.StartedAt != nil && res.StartedAt.Before(cutoff)
	}, limit, 0, oldestFirst)
}

func (r *MemoryRepo) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error) {
	return r.list(ctx, func(res Resume) bool {
		return res.Status == StatusPending && res.UpdatedAt.Before(cutoff)
	}, limit, 0, oldestFirst)
}

func newestFirst(a, b Resume) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func oldestFirst(a, b Resume) bool {
	if a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.ID < b.ID
	}
	return a.UpdatedAt.Before(b.UpdatedAt)
}

func (r *MemoryRepo) list(ctx context.Context, keep func(Resume) bool, limit, offset int, less func(a, b Resume) bool) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := []Resume{}
	for _, res := range r.resumes {
		if keep(res) {
			out = append(out, res.Clone())
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if offset >= len(out) {
		return []Resume{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)

// SetClock overrides the timestamp source used for updated_at.
func (r *MemoryRepo) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}
