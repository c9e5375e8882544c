package jobstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]schedule.Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]schedule.Job)}
}

// Put stores job, replacing any job with the same ID.
func (s *MemoryStore) Put(_ context.Context, job schedule.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

// PutAll stores every job, or none if any is invalid.
func (s *MemoryStore) PutAll(_ context.Context, jobs []schedule.Job) error {
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("job %q: %w", job.ID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		s.jobs[job.ID] = copyJob(job)
	}
	return nil
}

// Get returns the job with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (schedule.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return schedule.Job{}, ErrJobNotFound
	}
	return copyJob(job), nil
}

// List returns every job ordered by next run time.
func (s *MemoryStore) List(_ context.Context) ([]schedule.Job, error) {
	s.mu.RLock()
	jobs := make([]schedule.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, copyJob(job))
	}
	s.mu.RUnlock()

	sortJobs(jobs)
	return jobs, nil
}

// Remove deletes the job with the given ID.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	delete(s.jobs, id)
	return nil
}

// Clear deletes every job.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]schedule.Job)
	return nil
}

// copyJob detaches the targets slice so callers cannot mutate stored jobs.
func copyJob(job schedule.Job) schedule.Job {
	if job.Action.Targets != nil {
		targets := make([]actuator.Action, len(job.Action.Targets))
		copy(targets, job.Action.Targets)
		job.Action.Targets = targets
	}
	return job
}
