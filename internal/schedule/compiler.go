package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// Directory answers whether an actuator ID is known. *actuator.Registry
// satisfies it.
type Directory interface {
	Has(id actuator.ID) bool
}

// Compiler turns a Spec into job descriptors with absolute times.
type Compiler struct {
	directory  Directory
	startDelay time.Duration
	now        func() time.Time
}

// NewCompiler creates a compiler that validates actuator IDs against dir and
// shifts the schedule start by startDelay.
func NewCompiler(dir Directory, startDelay time.Duration) *Compiler {
	return &Compiler{
		directory:  dir,
		startDelay: startDelay,
		now:        time.Now,
	}
}

// Compile validates spec and returns its jobs: one date job per phase, the
// shutdown job after the last phase, then one recurring job per interval.
//
// All problems are reported together as a *ConfigurationError and no jobs
// are returned in that case.
func (c *Compiler) Compile(spec *Spec) ([]Job, error) {
	if spec == nil {
		spec = &Spec{}
	}
	if err := c.validate(spec); err != nil {
		return nil, err
	}

	now := c.now()
	start := spec.StartTime
	if start.IsZero() {
		start = now
	}
	cursor := start.Add(c.startDelay)

	jobs := make([]Job, 0, len(spec.Phases)+1+len(spec.Intervals))

	for i, phase := range spec.Phases {
		targets := make([]actuator.Action, len(phase.Actions))
		copy(targets, phase.Actions)

		jobs = append(jobs, Job{
			ID:        PhaseJobID(i),
			Kind:      KindDate,
			RunAt:     cursor,
			NextRunAt: cursor,
			Action:    TriggerAction(targets...),
		})
		cursor = cursor.Add(phase.Duration())
	}

	jobs = append(jobs, Job{
		ID:        ShutdownJobID,
		Kind:      KindDate,
		RunAt:     cursor,
		NextRunAt: cursor,
		Action:    ResetAllAction(),
	})

	for i, rule := range spec.Intervals {
		job := Job{
			ID:     IntervalJobID(i),
			Action: TriggerAction(actuator.Action{Actuator: rule.Actuator, Status: rule.Status}),
		}
		if rule.Cron != "" {
			job.Kind = KindCron
			job.CronSpec = rule.Cron
		} else {
			job.Kind = KindInterval
			job.Period = rule.Period()
		}

		next, err := job.NextAfter(now)
		if err != nil {
			return nil, &ConfigurationError{Problems: []string{err.Error()}}
		}
		job.NextRunAt = next
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (c *Compiler) validate(spec *Spec) error {
	var problems []string

	checkActuator := func(where string, id actuator.ID) {
		if id == "" {
			problems = append(problems, where+": actuator is required")
			return
		}
		if c.directory != nil && !c.directory.Has(id) {
			problems = append(problems, fmt.Sprintf("%s: unknown actuator %q", where, id))
		}
	}

	if c.startDelay < 0 {
		problems = append(problems, fmt.Sprintf("start delay %v is negative", c.startDelay))
	}

	var total float64
	for i, phase := range spec.Phases {
		where := fmt.Sprintf("phases[%d]", i)
		switch {
		case !representable(phase.DurationMinutes):
			problems = append(problems, fmt.Sprintf("%s: duration_minutes %v is out of range", where, phase.DurationMinutes))
		case phase.DurationMinutes < 0:
			problems = append(problems, fmt.Sprintf("%s: duration_minutes %v is negative", where, phase.DurationMinutes))
		default:
			total += phase.DurationMinutes
		}
		for j, action := range phase.Actions {
			checkActuator(fmt.Sprintf("%s.actions[%d]", where, j), action.Actuator)
		}
	}

	if !representable(total) {
		problems = append(problems, fmt.Sprintf("phases: total duration of %v minutes is out of range", total))
	}

	for i, rule := range spec.Intervals {
		where := fmt.Sprintf("intervals[%d]", i)
		checkActuator(where, rule.Actuator)

		switch {
		case rule.Cron != "" && rule.PeriodMinutes != 0:
			problems = append(problems, where+": set either period_minutes or cron, not both")
		case rule.Cron != "":
			if _, err := ParseCron(rule.Cron); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", where, err))
			}
		case !representable(rule.PeriodMinutes):
			problems = append(problems, fmt.Sprintf("%s: period_minutes %v is out of range", where, rule.PeriodMinutes))
		case rule.PeriodMinutes <= 0:
			problems = append(problems, fmt.Sprintf("%s: period_minutes must be positive", where))
		}
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// maxMinutes is the longest span, in minutes, a time.Duration can hold.
const maxMinutes = float64(math.MaxInt64 / int64(time.Minute))

// representable reports whether m minutes converts to a time.Duration.
func representable(m float64) bool {
	return !math.IsNaN(m) && !math.IsInf(m, 0) && math.Abs(m) <= maxMinutes
}
