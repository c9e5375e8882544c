package actuator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrActuatorNotFound is returned when an ID is not registered.
	ErrActuatorNotFound = errors.New("actuator: not found")

	// ErrActuatorFault is returned when a driver fails to apply a value.
	ErrActuatorFault = errors.New("actuator: fault")

	// ErrDuplicateActuator is returned when a different actuator is
	// registered under an ID that is already taken.
	ErrDuplicateActuator = errors.New("actuator: duplicate id")

	// ErrInvalidActuator is returned for a nil actuator or an empty ID.
	ErrInvalidActuator = errors.New("actuator: invalid")
)

// NotFoundError reports an unknown ID together with the IDs that are
// registered, which is usually enough to spot a changed wiring after restart.
type NotFoundError struct {
	ID    ID
	Known []ID
}

func (e *NotFoundError) Error() string {
	known := make([]string, len(e.Known))
	for i, id := range e.Known {
		known[i] = string(id)
	}
	return fmt.Sprintf("actuator %q not found (known: %s)", e.ID, strings.Join(known, ", "))
}

// Is makes errors.Is(err, ErrActuatorNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrActuatorNotFound
}

// FaultError wraps a driver failure with the actuator and attempted value.
type FaultError struct {
	ID    ID
	Value int
	Err   error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("actuator %q failed to apply %d: %v", e.ID, e.Value, e.Err)
}

// Is makes errors.Is(err, ErrActuatorFault) match.
func (e *FaultError) Is(target error) bool {
	return target == ErrActuatorFault
}

func (e *FaultError) Unwrap() error {
	return e.Err
}
