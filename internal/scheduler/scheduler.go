package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Actuators is what the scheduler needs from the actuator registry.
// *actuator.Registry satisfies it.
type Actuators interface {
	schedule.Directory
	TriggerBatch(ctx context.Context, actions []actuator.Action) error
	ResetAll(ctx context.Context) actuator.Results
}

// RunObserver is called after every recorded job run.
// Observers run on the job's goroutine and must not block.
type RunObserver func(job schedule.Job, run jobstore.Run)

// Config holds the scheduler settings.
type Config struct {
	// StartDelay is added to the schedule start time when compiling.
	StartDelay time.Duration

	// MisfireGrace is how late a one-shot job may still fire. Zero means
	// overdue jobs always fire. Reset jobs ignore it.
	MisfireGrace time.Duration

	// Monitor installs an ephemeral job that logs the job list every
	// MonitorInterval.
	Monitor         bool
	MonitorInterval time.Duration
}

// idleWait bounds how long the loop sleeps when no job is due, so jobs
// written to the stores by other processes are eventually seen.
const idleWait = time.Minute

// storeRetryDelay is how long a recurring job waits when re-arming it failed.
const storeRetryDelay = time.Second

// Scheduler dispatches jobs from a persistent and an ephemeral store.
//
// Thread Safety: all public methods are safe for concurrent use.
type Scheduler struct {
	cfg        Config
	actuators  Actuators
	compiler   *schedule.Compiler
	persistent jobstore.Store
	ephemeral  jobstore.Store
	recorder   jobstore.RunRecorder
	logger     Logger
	now        func() time.Time

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	loopDone   chan struct{}
	inFlight   map[string]struct{}
	sequencing bool
	observers  []RunObserver
	lastSpec   *schedule.Spec
	done       chan struct{}
	completed  bool

	wake chan struct{}
	jobs sync.WaitGroup
}

// New creates a stopped scheduler. persistent holds the timetable and must
// survive restarts; ephemeral holds process-local jobs.
func New(cfg Config, actuators Actuators, persistent, ephemeral jobstore.Store) *Scheduler {
	if ephemeral == nil {
		ephemeral = jobstore.NewMemoryStore()
	}
	return &Scheduler{
		cfg:        cfg,
		actuators:  actuators,
		compiler:   schedule.NewCompiler(actuators, cfg.StartDelay),
		persistent: persistent,
		ephemeral:  ephemeral,
		logger:     noopLogger{},
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetRecorder sets where job runs are recorded. Without one, runs are only
// logged and reported to observers.
func (s *Scheduler) SetRecorder(recorder jobstore.RunRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = recorder
}

// OnRun registers fn to be told about every job run.
func (s *Scheduler) OnRun(fn RunObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Scheduler) getLogger() Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger
}

// Recover prepares the persistent store for Start.
//
// A non-empty store is trusted and spec is ignored; it must contain a reset
// job or a *RecoveryInconsistencyError is returned. An empty store is filled
// with the jobs compiled from spec in one atomic write. The monitor job, when
// enabled, is always installed in the ephemeral store.
func (s *Scheduler) Recover(ctx context.Context, spec *schedule.Spec) error {
	s.mu.Lock()
	s.lastSpec = spec
	logger := s.logger
	s.mu.Unlock()

	existing, err := s.persistent.List(ctx)
	if err != nil {
		return fmt.Errorf("listing persisted jobs: %w", err)
	}

	if len(existing) > 0 {
		if !hasResetJob(existing) {
			ids := make([]string, len(existing))
			for i, job := range existing {
				ids[i] = job.ID
			}
			return &RecoveryInconsistencyError{JobIDs: ids}
		}
		logger.Info("resuming persisted schedule", "jobs", len(existing))
	} else {
		jobs, err := s.compiler.Compile(spec)
		if err != nil {
			return err
		}
		if err := s.persistent.PutAll(ctx, jobs); err != nil {
			return fmt.Errorf("persisting compiled jobs: %w", err)
		}
		logger.Info("schedule compiled", "jobs", len(jobs))
	}

	if s.cfg.Monitor && s.cfg.MonitorInterval > 0 {
		monitor := schedule.Job{
			ID:        schedule.MonitorJobID,
			Kind:      schedule.KindInterval,
			Period:    s.cfg.MonitorInterval,
			NextRunAt: s.now().Add(s.cfg.MonitorInterval),
			Action:    schedule.MonitorAction(),
		}
		if err := s.ephemeral.Put(ctx, monitor); err != nil {
			return fmt.Errorf("installing monitor job: %w", err)
		}
	}

	s.mu.Lock()
	if s.completed {
		s.completed = false
		s.done = make(chan struct{})
	}
	s.mu.Unlock()

	s.poke()
	return nil
}

func hasResetJob(jobs []schedule.Job) bool {
	for _, job := range jobs {
		if job.Action.Type == schedule.ActionResetAll {
			return true
		}
	}
	return false
}

// Start launches the dispatch loop and reports whether it was started.
// Calling Start on a running scheduler is a logged no-op.
//
// The loop is detached from ctx cancellation; use Stop to halt it.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("scheduler already running")
		return false
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.running = true
	s.cancel = cancel
	s.loopDone = make(chan struct{})

	go s.loop(loopCtx, s.loopDone)

	s.logger.Info("scheduler started")
	return true
}

// Stop halts dispatch and switches every actuator off. It does not wait for
// jobs already running; their contexts are cancelled. Stop is safe to call
// repeatedly and on a scheduler that was never started.
//
// Once the shutdown job has fired, Stop also removes what is left of the
// finished timetable (its interval jobs), so the next Recover compiles a new
// one. The reset and the cleanup run even if ctx is already cancelled.
func (s *Scheduler) Stop(ctx context.Context) actuator.Results {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	wasRunning := s.running
	cancel, loopDone := s.cancel, s.loopDone
	s.running = false
	s.cancel = nil
	s.loopDone = nil
	logger := s.logger
	s.mu.Unlock()

	if wasRunning {
		cancel()
		<-loopDone
		logger.Info("scheduler stopped")
	}

	if s.Completed() {
		if err := s.persistent.Clear(ctx); err != nil {
			logger.Error("failed to clear finished timetable", "error", err)
		} else {
			logger.Info("finished timetable cleared")
		}
	}

	results := s.actuators.ResetAll(ctx)
	if failed := results.Failures(); len(failed) > 0 {
		logger.Warn("some actuators could not be reset", "failed", len(failed), "error", failed.Err())
	}
	return results
}

// Wait blocks until every job that has been dispatched has finished, or ctx
// is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear removes every persisted job. Run history is kept.
func (s *Scheduler) Clear(ctx context.Context) error {
	if err := s.persistent.Clear(ctx); err != nil {
		return fmt.Errorf("clearing persisted jobs: %w", err)
	}
	s.getLogger().Info("persisted jobs cleared")
	s.poke()
	return nil
}

// Jobs returns the jobs of both stores ordered by next run time.
func (s *Scheduler) Jobs(ctx context.Context) ([]schedule.Job, error) {
	persisted, err := s.persistent.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing persisted jobs: %w", err)
	}
	local, err := s.ephemeral.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ephemeral jobs: %w", err)
	}

	jobs := append(persisted, local...)
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].NextRunAt.Before(jobs[j].NextRunAt)
	})
	return jobs, nil
}

// Running reports whether the dispatch loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed once the shutdown job has fired. A Recover after completion
// arms a new channel for the next timetable.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Completed reports whether the shutdown job has fired.
func (s *Scheduler) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *Scheduler) markDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.completed {
		s.completed = true
		close(s.done)
	}
}

// poke wakes the dispatch loop so it re-reads the stores.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
