package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const resumeColumns = `id, job_id, user_id, file_path, file_name, mime_type, size_bytes, text_path,
  status, parsed_data, score, retry_count, max_retries, processing_log, attempt_id, started_at,
  version, created_at, updated_at`

// maxCASAttempts bounds re-reads when only the version moved underneath us.
const maxCASAttempts = 5

// PGRepo stores resumes in Postgres with optimistic concurrency on
// (status, version).
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	if err := validateNew(res); err != nil {
		return err
	}
	logJSON, err := json.Marshal(res.ProcessingLog)
	if err != nil {
		return fmt.Errorf("encode processing log: %w", err)
	}
	createdAt := res.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `
INSERT INTO resumes (
  id, job_id, user_id, file_path, file_name, mime_type, size_bytes,
  status, retry_count, max_retries, processing_log, version, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, 1, $12, $12)`
	_, err = r.DB.ExecContext(ctx, query,
		res.ID,
		res.JobID,
		res.UserID,
		res.FilePath,
		res.FileName,
		res.MimeType,
		res.SizeBytes,
		string(res.Status),
		res.RetryCount,
		res.MaxRetries,
		string(logJSON),
		createdAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return fmt.Errorf("%w: resume %s already exists", ErrInvalidInput, res.ID)
			case foreignKeyViolation:
				return ErrJobNotFound
			}
		}
		return err
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

func (r *PGRepo) CompareAndTransition(ctx context.Context, id string, from, to Status, mutate Mutator) (Resume, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return Resume{}, err
		}
		next, err := applyTransition(current, from, to, mutate, time.Now().UTC())
		if err != nil {
			return Resume{}, err
		}
		ok, err := r.update(ctx, current, next)
		if err != nil {
			return Resume{}, err
		}
		if ok {
			return next, nil
		}
		// Lost the race. Loop to re-read: if the status moved, applyTransition
		// reports the conflict; if only the version moved, try again.
	}
	return Resume{}, fmt.Errorf("%w: version kept moving for %s", ErrStatusConflict, id)
}

func (r *PGRepo) update(ctx context.Context, current, next Resume) (bool, error) {
	logJSON, err := json.Marshal(next.ProcessingLog)
	if err != nil {
		return false, fmt.Errorf("encode processing log: %w", err)
	}
	var parsed any
	if next.ParsedData != nil {
		raw, err := json.Marshal(next.ParsedData)
		if err != nil {
			return false, fmt.Errorf("encode parsed data: %w", err)
		}
		parsed = string(raw)
	}

	const query = `
UPDATE resumes SET
  status = $3,
  parsed_data = $4::jsonb,
  score = $5,
  text_path = $6,
  retry_count = $7,
  processing_log = $8::jsonb,
  attempt_id = $9,
  started_at = $10,
  version = $11,
  updated_at = $12
WHERE id = $1 AND status = $2 AND version = $13`
	result, err := r.DB.ExecContext(ctx, query,
		next.ID,
		string(current.Status),
		string(next.Status),
		parsed,
		nullableFloat(next.Score),
		nullableString(next.TextPath),
		next.RetryCount,
		string(logJSON),
		nullableString(next.AttemptID),
		nullableTime(next.StartedAt),
		next.Version,
		next.UpdatedAt,
		current.Version,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PGRepo) AppendLog(ctx context.Context, id, attemptID string, entry LogEntry) (Resume, error) {
	if entry.Event == "" {
		return Resume{}, fmt.Errorf("%w: event is required", ErrLogInvariant)
	}
	entryJSON, err := json.Marshal([]LogEntry{entry})
	if err != nil {
		return Resume{}, fmt.Errorf("encode log entry: %w", err)
	}
	query := `
UPDATE resumes SET
  processing_log = processing_log || $3::jsonb,
  version = version + 1,
  updated_at = now()
WHERE id = $1 AND status = 'PROCESSING' AND attempt_id = $2
RETURNING ` + resumeColumns
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id, attemptID, string(entryJSON)))
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Resume{}, err
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Resume{}, err
	}
	_, err = applyAppend(current, attemptID, entry, time.Now().UTC())
	if err == nil {
		return Resume{}, fmt.Errorf("%w: append raced for %s", ErrStatusConflict, id)
	}
	return Resume{}, err
}

func (r *PGRepo) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE job_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	return r.query(ctx, query, jobID, limit, offset)
}

func (r *PGRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE status = 'PROCESSING' AND started_at < $1
ORDER BY started_at ASC
LIMIT $2`
	return r.query(ctx, query, cutoff, limit)
}

func (r *PGRepo) ListPending(ctx context.Context, cutoff time.Time, limit int) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE status = 'PENDING' AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2`
	return r.query(ctx, query, cutoff, limit)
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Resume, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resume{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var (
		res       Resume
		status    string
		textPath  sql.NullString
		parsed    []byte
		score     sql.NullFloat64
		logRaw    []byte
		attemptID sql.NullString
		startedAt sql.NullTime
	)
	err := row.Scan(
		&res.ID,
		&res.JobID,
		&res.UserID,
		&res.FilePath,
		&res.FileName,
		&res.MimeType,
		&res.SizeBytes,
		&textPath,
		&status,
		&parsed,
		&score,
		&res.RetryCount,
		&res.MaxRetries,
		&logRaw,
		&attemptID,
		&startedAt,
		&res.Version,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return Resume{}, err
	}
	res.Status = Status(status)
	if textPath.Valid {
		res.TextPath = textPath.String
	}
	if len(parsed) > 0 {
		var pd ParsedData
		if err := json.Unmarshal(parsed, &pd); err != nil {
			return Resume{}, fmt.Errorf("decode parsed data: %w", err)
		}
		res.ParsedData = &pd
	}
	if score.Valid {
		s := score.Float64
		res.Score = &s
	}
	if len(logRaw) > 0 {
		if err := json.Unmarshal(logRaw, &res.ProcessingLog); err != nil {
			return Resume{}, fmt.Errorf("decode processing log: %w", err)
		}
	}
	if attemptID.Valid {
		res.AttemptID = attemptID.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		res.StartedAt = &t
	}
	return res, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

var _ Repo = (*PGRepo)(nil)
