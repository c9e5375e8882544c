package schedule

import (
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// Kind selects how a job is timed.
type Kind string

const (
	// KindDate fires once at RunAt.
	KindDate Kind = "date"
	// KindInterval fires every Period.
	KindInterval Kind = "interval"
	// KindCron fires on a cron schedule.
	KindCron Kind = "cron"
)

// ActionType is the tag of a job's action.
type ActionType string

const (
	ActionTrigger  ActionType = "trigger"
	ActionResetAll ActionType = "reset_all"
	ActionMonitor  ActionType = "monitor"
)

// Well-known job IDs.
const (
	ShutdownJobID = "shutdown"
	MonitorJobID  = "monitor"
)

// PhaseJobID returns the ID of the job that starts phase i.
func PhaseJobID(i int) string { return "phase-" + strconv.Itoa(i) }

// IntervalJobID returns the ID of the job for interval rule i.
func IntervalJobID(i int) string { return "interval-" + strconv.Itoa(i) }

// Action is the work a job performs. Targets is only used by ActionTrigger.
type Action struct {
	Type    ActionType        `json:"type"`
	Targets []actuator.Action `json:"targets,omitempty"`
}

// TriggerAction applies targets as one fail-fast batch.
func TriggerAction(targets ...actuator.Action) Action {
	return Action{Type: ActionTrigger, Targets: targets}
}

// ResetAllAction switches every actuator off.
func ResetAllAction() Action {
	return Action{Type: ActionResetAll}
}

// MonitorAction logs the current job list.
func MonitorAction() Action {
	return Action{Type: ActionMonitor}
}

// Job is the persisted descriptor of one scheduled unit of work.
type Job struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	RunAt     time.Time     `json:"run_at,omitempty"`
	Period    time.Duration `json:"period,omitempty"`
	CronSpec  string        `json:"cron,omitempty"`
	NextRunAt time.Time     `json:"next_run_at"`
	Action    Action        `json:"action"`
}

// IsRecurring reports whether the job re-arms after firing.
func (j Job) IsRecurring() bool {
	return j.Kind == KindInterval || j.Kind == KindCron
}

// Validate checks the descriptor is internally consistent.
func (j Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidJob)
	}

	switch j.Kind {
	case KindDate:
		if j.RunAt.IsZero() {
			return fmt.Errorf("%w: %s: date job without run_at", ErrInvalidJob, j.ID)
		}
	case KindInterval:
		if j.Period <= 0 {
			return fmt.Errorf("%w: %s: non-positive period %v", ErrInvalidJob, j.ID, j.Period)
		}
	case KindCron:
		if _, err := ParseCron(j.CronSpec); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidJob, j.ID, err)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidJob, j.ID, j.Kind)
	}

	switch j.Action.Type {
	case ActionTrigger:
		if len(j.Action.Targets) == 0 {
			return fmt.Errorf("%w: %s: trigger without targets", ErrInvalidJob, j.ID)
		}
	case ActionResetAll, ActionMonitor:
	default:
		return fmt.Errorf("%w: %s: unknown action %q", ErrInvalidJob, j.ID, j.Action.Type)
	}
	return nil
}

// NextAfter returns the first fire time of a recurring job strictly after
// now. Missed periods are coalesced: an interval job that was due long ago
// is re-armed on its own cadence rather than fired once per missed period.
func (j Job) NextAfter(now time.Time) (time.Time, error) {
	switch j.Kind {
	case KindInterval:
		if j.Period <= 0 {
			return time.Time{}, fmt.Errorf("%w: %s: non-positive period", ErrInvalidJob, j.ID)
		}
		next := j.NextRunAt
		if next.IsZero() {
			return now.Add(j.Period), nil
		}
		if !next.After(now) {
			missed := now.Sub(next)/j.Period + 1
			next = next.Add(missed * j.Period)
		}
		return next, nil
	case KindCron:
		sched, err := ParseCron(j.CronSpec)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s: %w", ErrInvalidJob, j.ID, err)
		}
		return sched.Next(now), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s: %q jobs do not recur", ErrInvalidJob, j.ID, j.Kind)
	}
}

// ParseCron parses a standard five-field cron expression or a descriptor
// such as "@hourly" or "@every 5m".
func ParseCron(spec string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return sched, nil
}
