package jobstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

var (
	// ErrJobNotFound is returned when a job ID does not exist in the store.
	ErrJobNotFound = errors.New("jobstore: job not found")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("jobstore: run not found")
)

// Store holds job descriptors keyed by ID. Put replaces an existing job with
// the same ID.
type Store interface {
	Put(ctx context.Context, job schedule.Job) error
	PutAll(ctx context.Context, jobs []schedule.Job) error
	Get(ctx context.Context, id string) (schedule.Job, error)
	List(ctx context.Context) ([]schedule.Job, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// RunStatus is the outcome of one job execution.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one execution of a job, kept after the job itself is removed.
type Run struct {
	ID          string              `json:"id"`
	JobID       string              `json:"job_id"`
	ActionType  schedule.ActionType `json:"action_type"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Status      RunStatus           `json:"status"`
	Error       string              `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunRecorder is implemented by stores that keep run history.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, jobID string, limit int) ([]Run, error)
}

// sortJobs orders jobs by next run time, then ID, matching the SQL ordering.
func sortJobs(jobs []schedule.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].NextRunAt.Equal(jobs[j].NextRunAt) {
			return jobs[i].NextRunAt.Before(jobs[j].NextRunAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}
