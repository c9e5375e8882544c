package schedule

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("schedule: invalid configuration")

	// ErrInvalidJob is returned when a job descriptor is malformed.
	ErrInvalidJob = errors.New("schedule: invalid job")
)

// ConfigurationError lists every problem found in a Spec. A schedule with any
// problem must not be partially applied.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid schedule:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Is makes errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
