package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRecoveryInconsistent is matched by every *RecoveryInconsistencyError.
var ErrRecoveryInconsistent = errors.New("scheduler: persisted jobs are inconsistent")

// RecoveryInconsistencyError is returned by Recover when the persistent store
// holds jobs but none of them resets the actuators. Starting from such a
// store could leave heaters running indefinitely.
type RecoveryInconsistencyError struct {
	JobIDs []string
}

func (e *RecoveryInconsistencyError) Error() string {
	return fmt.Sprintf("scheduler: persisted jobs have no reset job (found: %s)", strings.Join(e.JobIDs, ", "))
}

// Is makes errors.Is(err, ErrRecoveryInconsistent) match.
func (e *RecoveryInconsistencyError) Is(target error) bool {
	return target == ErrRecoveryInconsistent
}
