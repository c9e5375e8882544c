package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

// loop fires due jobs until ctx is cancelled. It sleeps until the earliest
// next run, or until poked.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(idleWait)
	defer timer.Stop()

	for {
		next := s.dispatchDue(ctx)

		wait := idleWait
		if !next.IsZero() {
			wait = max(next.Sub(s.now()), 0)
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// dueJob is a one-shot job waiting its turn in a dispatch sequence.
type dueJob struct {
	job   schedule.Job
	owner jobstore.Store
}

// dispatchDue fires every due job that is not already running and returns
// the earliest future run time, or zero if there is none.
//
// Recurring jobs each get their own goroutine. Due one-shot jobs run one
// after another in NextRunAt order, so a late phase can never land after
// the reset that follows it. While such a sequence runs, newly due one-shots
// wait for it to finish.
func (s *Scheduler) dispatchDue(ctx context.Context) time.Time {
	now := s.now()
	var next time.Time
	var due []dueJob
	sequencing := s.isSequencing()

	for _, store := range []jobstore.Store{s.persistent, s.ephemeral} {
		jobs, err := store.List(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.getLogger().Error("failed to list jobs", "error", err)
			}
			continue
		}

		for _, job := range jobs {
			if ctx.Err() != nil {
				return time.Time{}
			}
			if s.isInFlight(job.ID) {
				continue
			}
			if job.NextRunAt.After(now) {
				next = earliest(next, job.NextRunAt)
				continue
			}
			if job.IsRecurring() {
				next = earliest(next, s.fireRecurring(ctx, store, job, now))
				continue
			}
			if sequencing || s.skipMissed(ctx, store, job, now) {
				continue
			}
			due = append(due, dueJob{job: job, owner: store})
		}
	}

	if len(due) > 0 {
		sort.SliceStable(due, func(i, j int) bool {
			return due[i].job.NextRunAt.Before(due[j].job.NextRunAt)
		})
		s.launchSequence(ctx, due)
	}
	return next
}

// fireRecurring re-arms a due recurring job, launches it and returns its
// next run time.
func (s *Scheduler) fireRecurring(ctx context.Context, store jobstore.Store, job schedule.Job, now time.Time) time.Time {
	logger := s.getLogger()

	nextRun, err := job.NextAfter(now)
	if err != nil {
		logger.Error("dropping job that cannot be re-armed", "job_id", job.ID, "error", err)
		s.removeJob(ctx, store, job.ID)
		return time.Time{}
	}

	armed := job
	armed.NextRunAt = nextRun
	if err := store.Put(ctx, armed); err != nil {
		logger.Error("failed to re-arm job", "job_id", job.ID, "error", err)
		return now.Add(storeRetryDelay)
	}

	s.mu.Lock()
	s.inFlight[job.ID] = struct{}{}
	s.mu.Unlock()
	s.jobs.Add(1)

	go func() {
		defer s.finished(job.ID)
		s.runJob(ctx, job, nil)
	}()
	return nextRun
}

// skipMissed removes a one-shot job that is later than the misfire grace and
// reports whether it did. Reset jobs are never skipped.
func (s *Scheduler) skipMissed(ctx context.Context, store jobstore.Store, job schedule.Job, now time.Time) bool {
	late := now.Sub(job.NextRunAt)
	if s.cfg.MisfireGrace <= 0 || late <= s.cfg.MisfireGrace || job.Action.Type == schedule.ActionResetAll {
		return false
	}

	s.getLogger().Warn("skipping missed job",
		"job_id", job.ID,
		"scheduled_at", job.NextRunAt,
		"late", late.Round(time.Second).String(),
	)
	s.removeJob(ctx, store, job.ID)
	return true
}

// launchSequence runs due one-shot jobs in order on one goroutine. Jobs not
// reached before Stop stay in their store for the next start.
func (s *Scheduler) launchSequence(ctx context.Context, due []dueJob) {
	s.mu.Lock()
	s.sequencing = true
	for _, d := range due {
		s.inFlight[d.job.ID] = struct{}{}
	}
	s.mu.Unlock()
	s.jobs.Add(1)

	go func() {
		defer func() {
			s.mu.Lock()
			s.sequencing = false
			for _, d := range due {
				delete(s.inFlight, d.job.ID)
			}
			s.mu.Unlock()
			s.jobs.Done()
			s.poke()
		}()

		for _, d := range due {
			if ctx.Err() != nil {
				return
			}
			s.runJob(ctx, d.job, d.owner)
		}
	}()
}

// finished releases a recurring job after its run.
func (s *Scheduler) finished(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
	s.jobs.Done()
	s.poke()
}

// runJob executes job and does its bookkeeping. A non-nil owner is a
// one-shot job's store; the job is removed from it after running.
func (s *Scheduler) runJob(ctx context.Context, job schedule.Job, owner jobstore.Store) {
	run, report := s.execute(ctx, job)

	// Bookkeeping must finish even when Stop cancelled the run.
	bookCtx := context.WithoutCancel(ctx)
	if owner != nil {
		s.removeJob(bookCtx, owner, job.ID)
	}
	if job.ID == schedule.ShutdownJobID {
		s.markDone()
	}
	if report {
		s.report(bookCtx, job, run)
	}
}

// execute performs the job's action. The second result is false for jobs
// that are not worth recording, such as the monitor listing.
func (s *Scheduler) execute(ctx context.Context, job schedule.Job) (jobstore.Run, bool) {
	logger := s.getLogger()
	started := s.now()

	var err error
	switch job.Action.Type {
	case schedule.ActionTrigger:
		logger.Info("job firing", "job_id", job.ID, "targets", len(job.Action.Targets))
		err = s.actuators.TriggerBatch(ctx, job.Action.Targets)
	case schedule.ActionResetAll:
		logger.Info("job firing", "job_id", job.ID, "action", string(job.Action.Type))
		err = s.actuators.ResetAll(ctx).Err()
	case schedule.ActionMonitor:
		s.logJobs(ctx)
		return jobstore.Run{}, false
	default:
		err = fmt.Errorf("%w: %s: unknown action %q", schedule.ErrInvalidJob, job.ID, job.Action.Type)
	}

	run := jobstore.Run{
		JobID:       job.ID,
		ActionType:  job.Action.Type,
		StartedAt:   started,
		CompletedAt: s.now(),
		Status:      jobstore.RunCompleted,
	}
	if err != nil {
		run.Status = jobstore.RunFailed
		run.Error = err.Error()
		logger.Error("job failed", "job_id", job.ID, "error", err)
	} else {
		logger.Info("job completed", "job_id", job.ID, "duration", run.Duration().String())
	}
	return run, true
}

func (s *Scheduler) report(ctx context.Context, job schedule.Job, run jobstore.Run) {
	s.mu.Lock()
	recorder := s.recorder
	observers := make([]RunObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	if recorder != nil {
		if err := recorder.RecordRun(ctx, run); err != nil {
			s.getLogger().Error("failed to record job run", "job_id", job.ID, "error", err)
		}
	}
	for _, fn := range observers {
		fn(job, run)
	}
}

// logJobs writes the current job list to the log.
func (s *Scheduler) logJobs(ctx context.Context) {
	logger := s.getLogger()
	jobs, err := s.Jobs(ctx)
	if err != nil {
		logger.Error("failed to list jobs", "error", err)
		return
	}

	logger.Info("scheduled jobs", "count", len(jobs))
	for _, job := range jobs {
		logger.Info("job",
			"job_id", job.ID,
			"kind", string(job.Kind),
			"action", string(job.Action.Type),
			"next_run_at", job.NextRunAt.Format(time.RFC3339),
		)
	}
}

func (s *Scheduler) removeJob(ctx context.Context, store jobstore.Store, id string) {
	// A job cleared while it was running is already gone.
	if err := store.Remove(ctx, id); err != nil && !errors.Is(err, jobstore.ErrJobNotFound) {
		s.getLogger().Error("failed to remove job", "job_id", id, "error", err)
	}
}

func (s *Scheduler) isSequencing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequencing
}

func (s *Scheduler) isInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}
