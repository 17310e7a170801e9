package resumes

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var pgColumns = []string{
	"id", "job_id", "user_id", "file_path", "file_name", "mime_type", "size_bytes", "text_path",
	"status", "parsed_data", "score", "retry_count", "max_retries", "processing_log", "attempt_id", "started_at",
	"version", "created_at", "updated_at",
}

func rowValues(t *testing.T, r Resume) []driver.Value {
	t.Helper()
	logJSON, err := json.Marshal(r.ProcessingLog)
	if err != nil {
		t.Fatalf("marshal log: %v", err)
	}
	var attempt any
	if r.AttemptID != "" {
		attempt = r.AttemptID
	}
	var started any
	if r.StartedAt != nil {
		started = *r.StartedAt
	}
	return []driver.Value{
		r.ID, r.JobID, r.UserID, r.FilePath, r.FileName, r.MimeType, r.SizeBytes, nil,
		string(r.Status), nil, nil, r.RetryCount, r.MaxRetries, logJSON, attempt, started,
		r.Version, r.CreatedAt, r.CreatedAt,
	}
}

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	res := pendingResume()

	mock.ExpectExec("INSERT INTO resumes").
		WithArgs(res.ID, res.JobID, res.UserID, res.FilePath, res.FileName, res.MimeType, res.SizeBytes,
			"PENDING", 0, 3, sqlmock.AnyArg(), res.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompareAndTransitionGuardsOnStatusAndVersion(t *testing.T) {
	repo, mock := newMock(t)
	res := pendingResume()

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, res)...))
	mock.ExpectExec("UPDATE resumes SET").
		WithArgs(
			"r-1", "PENDING", "PROCESSING",
			nil, nil, nil, 0,
			sqlmock.AnyArg(), "attempt-1", sqlmock.AnyArg(),
			int64(2), sqlmock.AnyArg(), int64(1),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	started := time.Now().UTC()
	got, err := repo.CompareAndTransition(context.Background(), "r-1", StatusPending, StatusProcessing, func(r *Resume) error {
		r.AttemptID = "attempt-1"
		r.StartedAt = &started
		r.ProcessingLog = append(r.ProcessingLog, LogEntry{Event: EventProcessingStarted, Timestamp: started})
		return nil
	})
	if err != nil {
		t.Fatalf("CompareAndTransition: %v", err)
	}
	if got.Status != StatusProcessing || got.Version != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompareAndTransitionDetectsLostRace(t *testing.T) {
	repo, mock := newMock(t)
	res := pendingResume()
	moved := res
	moved.Status = StatusProcessing
	moved.Version = 2
	moved.ProcessingLog = append(append([]LogEntry(nil), res.ProcessingLog...), LogEntry{Event: EventProcessingStarted, Timestamp: res.CreatedAt})

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, res)...))
	mock.ExpectExec("UPDATE resumes SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, moved)...))

	_, err := repo.CompareAndTransition(context.Background(), "r-1", StatusPending, StatusProcessing, appendEntry(EventProcessingStarted))
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoAppendLogRejectsStaleAttempt(t *testing.T) {
	repo, mock := newMock(t)
	res := pendingResume()
	res.Status = StatusProcessing
	res.AttemptID = "attempt-new"
	started := res.CreatedAt
	res.StartedAt = &started

	mock.ExpectQuery("UPDATE resumes SET").
		WithArgs("r-1", "attempt-old", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(pgColumns))
	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, res)...))

	_, err := repo.AppendLog(context.Background(), "r-1", "attempt-old", LogEntry{Event: EventExtracted, Timestamp: time.Now()})
	if !errors.Is(err, ErrStaleAttempt) {
		t.Fatalf("expected ErrStaleAttempt, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoScanDecodesJSONColumns(t *testing.T) {
	repo, mock := newMock(t)
	res := pendingResume()
	values := rowValues(t, res)
	values[7] = "resumes/text/x.txt"
	values[8] = "DONE"
	values[9] = []byte(`{"skills":["go"],"experienceYears":4,"matchedKeywords":["go"],"wordCount":120}`)
	values[10] = 0.75

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(values...))

	got, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ParsedData == nil || got.ParsedData.ExperienceYears != 4 || got.ParsedData.Skills[0] != "go" {
		t.Fatalf("unexpected parsed data: %+v", got.ParsedData)
	}
	if got.Score == nil || *got.Score != 0.75 || got.TextPath != "resumes/text/x.txt" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if len(got.ProcessingLog) != 1 || got.ProcessingLog[0].Event != EventUploaded {
		t.Fatalf("unexpected log: %+v", got.ProcessingLog)
	}
}

func TestPGRepoCreateMapsConstraintViolations(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{code: "23505", want: ErrInvalidInput},
		{code: "23503", want: ErrJobNotFound},
	}
	for _, tc := range cases {
		repo, mock := newMock(t)
		mock.ExpectExec("INSERT INTO resumes").WillReturnError(&pgconn.PgError{Code: tc.code})

		err := repo.Create(context.Background(), pendingResume())
		if !errors.Is(err, tc.want) {
			t.Fatalf("code %s: expected %v, got %v", tc.code, tc.want, err)
		}
	}
}

func TestPGRepoListStaleSelectsOldProcessing(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC)

	res := pendingResume()
	res.Status = StatusProcessing
	res.AttemptID = "attempt-1"
	started := cutoff.Add(-time.Minute)
	res.StartedAt = &started
	res.ProcessingLog = append(res.ProcessingLog, LogEntry{Event: EventProcessingStarted, Timestamp: started})

	mock.ExpectQuery(`WHERE status = 'PROCESSING' AND started_at < \$1\s+ORDER BY started_at ASC\s+LIMIT \$2`).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, res)...))

	got, err := repo.ListStale(context.Background(), cutoff, 50)
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(got) != 1 || got[0].Status != StatusProcessing || got[0].AttemptID != "attempt-1" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListPendingSelectsIdlePending(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE status = 'PENDING' AND updated_at < \$1\s+ORDER BY updated_at ASC\s+LIMIT \$2`).
		WithArgs(cutoff, 25).
		WillReturnRows(sqlmock.NewRows(pgColumns).AddRow(rowValues(t, pendingResume())...))

	got, err := repo.ListPending(context.Background(), cutoff, 25)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 1 || got[0].Status != StatusPending {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
