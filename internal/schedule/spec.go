package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// Spec is the declarative schedule loaded from the schedule file.
type Spec struct {
	// StartTime anchors the first phase. Zero means "now".
	StartTime time.Time  `yaml:"start_time,omitempty"`
	Phases    []Phase    `yaml:"phases"`
	Intervals []Interval `yaml:"intervals"`
}

// Phase is one sequential segment: its actions are applied when it begins,
// and the next phase begins DurationMinutes later.
type Phase struct {
	Name            string            `yaml:"name,omitempty"`
	DurationMinutes float64           `yaml:"duration_minutes"`
	Actions         []actuator.Action `yaml:"actions"`
}

// Duration returns the phase length.
func (p Phase) Duration() time.Duration {
	return minutes(p.DurationMinutes)
}

// Interval is a recurring action independent of the phases. Exactly one of
// PeriodMinutes and Cron must be set.
type Interval struct {
	Actuator      actuator.ID `yaml:"actuator"`
	Status        int         `yaml:"status"`
	PeriodMinutes float64     `yaml:"period_minutes,omitempty"`
	Cron          string      `yaml:"cron,omitempty"`
}

// Period returns the interval period.
func (i Interval) Period() time.Duration {
	return minutes(i.PeriodMinutes)
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// LoadSpec reads a schedule file. Unknown keys are rejected so typos do not
// silently drop actions.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec decodes a schedule from YAML.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Problems: []string{fmt.Sprintf("parsing schedule: %v", err)}}
	}
	return &spec, nil
}
