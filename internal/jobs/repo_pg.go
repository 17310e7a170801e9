package jobs

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (id, title, description, created_by, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.DB.ExecContext(ctx, query, job.ID, job.Title, job.Description, job.CreatedBy, job.CreatedAt)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, title, description, created_by, created_at
FROM jobs
WHERE id = $1`
	var job Job
	err := r.DB.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.Title, &job.Description, &job.CreatedBy, &job.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

func (r *PGRepo) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]Job, error) {
	const query = `
SELECT id, title, description, created_by, created_at
FROM jobs
WHERE created_by = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Title, &job.Description, &job.CreatedBy, &job.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
