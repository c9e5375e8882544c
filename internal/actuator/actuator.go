package actuator

import (
	"context"
	"sync"
	"sync/atomic"
)

// ID is the stable, declared identity of an actuator. It comes from
// configuration and is what persisted jobs refer to, so it survives restarts.
type ID string

// Driver performs the physical side effect of setting an actuator.
//
// Implementations must tolerate repeated calls with the same value and must
// not assume any prior internal state. They should honour ctx for bounding
// slow I/O.
type Driver interface {
	ExecuteAction(ctx context.Context, value int) error
}

// DriverFunc adapts a plain function to the Driver interface.
type DriverFunc func(ctx context.Context, value int) error

// ExecuteAction calls f(ctx, value).
func (f DriverFunc) ExecuteAction(ctx context.Context, value int) error {
	return f(ctx, value)
}

// Actuator is one controllable device.
type Actuator struct {
	id     ID
	label  string
	driver Driver

	// mu serialises driver calls for this device.
	mu     sync.Mutex
	status atomic.Int64
}

// State is a point-in-time copy of an actuator for reporting.
type State struct {
	ID     ID     `json:"id"`
	Label  string `json:"label"`
	Status int    `json:"status"`
}

// New creates an actuator with status 0.
func New(id ID, label string, driver Driver) *Actuator {
	return &Actuator{id: id, label: label, driver: driver}
}

// ID returns the actuator's identity.
func (a *Actuator) ID() ID { return a.id }

// Label returns the human-readable label. Labels need not be unique.
func (a *Actuator) Label() string { return a.label }

// Status returns the last value successfully applied.
func (a *Actuator) Status() int { return int(a.status.Load()) }

// State returns a snapshot of the actuator.
func (a *Actuator) State() State {
	return State{ID: a.id, Label: a.label, Status: a.Status()}
}

// Trigger applies value through the driver. Status is updated only when the
// driver succeeds; a failure is returned as *FaultError and not retried.
func (a *Actuator) Trigger(ctx context.Context, value int) error {
	return a.apply(ctx, value, nil)
}

// apply is Trigger with a hook run on success before the lock is released,
// so observers see the states of one actuator in the order they were set.
func (a *Actuator) apply(ctx context.Context, value int, applied func(State)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.driver.ExecuteAction(ctx, value); err != nil {
		return &FaultError{ID: a.id, Value: value, Err: err}
	}
	a.status.Store(int64(value))
	if applied != nil {
		applied(a.State())
	}
	return nil
}

// Reset is Trigger(ctx, 0).
func (a *Actuator) Reset(ctx context.Context) error {
	return a.Trigger(ctx, 0)
}
