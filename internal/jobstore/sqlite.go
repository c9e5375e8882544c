package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/database"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

// timeFormat keeps sub-second precision and sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = `id, kind, run_at, period_ms, cron_spec, next_run_at, action`

const upsertJob = `
	INSERT INTO jobs (id, kind, run_at, period_ms, cron_spec, next_run_at, action, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		run_at = excluded.run_at,
		period_ms = excluded.period_ms,
		cron_spec = excluded.cron_spec,
		next_run_at = excluded.next_run_at,
		action = excluded.action,
		updated_at = excluded.updated_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStore implements Store and RunRecorder on the controller database.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a store on a migrated database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Put inserts or replaces job.
func (s *SQLiteStore) Put(ctx context.Context, job schedule.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := putJob(ctx, s.db, job, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing job %q: %w", job.ID, err)
	}
	return nil
}

// PutAll stores every job in one transaction: either all are persisted or
// none are.
func (s *SQLiteStore) PutAll(ctx context.Context, jobs []schedule.Job) error {
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("job %q: %w", job.ID, err)
		}
	}

	now := time.Now().UTC()
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, job := range jobs {
			if err := putJob(ctx, tx, job, now); err != nil {
				return fmt.Errorf("storing job %q: %w", job.ID, err)
			}
		}
		return nil
	})
}

func putJob(ctx context.Context, db execer, job schedule.Job, now time.Time) error {
	actionJSON, err := json.Marshal(job.Action)
	if err != nil {
		return fmt.Errorf("marshalling action: %w", err)
	}

	_, err = db.ExecContext(ctx, upsertJob,
		job.ID,
		string(job.Kind),
		nullableTime(job.RunAt),
		job.Period.Milliseconds(),
		job.CronSpec,
		formatTime(job.NextRunAt),
		string(actionJSON),
		formatTime(now),
		formatTime(now),
	)
	return err
}

// Get returns the job with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (schedule.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schedule.Job{}, ErrJobNotFound
		}
		return schedule.Job{}, fmt.Errorf("querying job %q: %w", id, err)
	}
	return job, nil
}

// List returns every persisted job ordered by next run time.
func (s *SQLiteStore) List(ctx context.Context) ([]schedule.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY next_run_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []schedule.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// Remove deletes the job with the given ID.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting job %q: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Clear deletes every persisted job. Run history is kept.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clearing jobs: %w", err)
	}
	return nil
}

// RecordRun appends a run to the history. An empty ID gets a fresh UUID.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_id, action_type, started_at, completed_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.JobID,
		string(run.ActionType),
		formatTime(run.StartedAt),
		nullableTime(run.CompletedAt),
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run of %q: %w", run.JobID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty jobID lists
// runs of every job.
func (s *SQLiteStore) ListRuns(ctx context.Context, jobID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, job_id, action_type, started_at, completed_at, status, error FROM job_runs`
	args := []any{}
	if jobID != "" {
		query += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			actionType  string
			status      string
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.JobID, &actionType, &startedAt, &completedAt, &status, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.ActionType = schedule.ActionType(actionType)
		run.Status = RunStatus(status)
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			if run.CompletedAt, err = parseTime(completedAt.String); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (schedule.Job, error) {
	var (
		job        schedule.Job
		kind       string
		runAt      sql.NullString
		periodMS   int64
		nextRunAt  string
		actionJSON string
	)
	if err := row.Scan(&job.ID, &kind, &runAt, &periodMS, &job.CronSpec, &nextRunAt, &actionJSON); err != nil {
		return schedule.Job{}, err
	}

	job.Kind = schedule.Kind(kind)
	job.Period = time.Duration(periodMS) * time.Millisecond

	var err error
	if runAt.Valid {
		if job.RunAt, err = parseTime(runAt.String); err != nil {
			return schedule.Job{}, err
		}
	}
	if job.NextRunAt, err = parseTime(nextRunAt); err != nil {
		return schedule.Job{}, err
	}
	if err := json.Unmarshal([]byte(actionJSON), &job.Action); err != nil {
		return schedule.Job{}, fmt.Errorf("unmarshalling action of %q: %w", job.ID, err)
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
