package actuator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Action sets one actuator to one value. It is the ID-keyed form stored in
// job descriptors.
type Action struct {
	Actuator ID  `json:"actuator" yaml:"actuator"`
	Status   int `json:"status" yaml:"status"`
}

// Binding pairs an actuator instance with a value, before registration.
type Binding struct {
	Actuator *Actuator
	Status   int
}

// Result is the outcome of one actuator in a best-effort bulk operation.
type Result struct {
	ID    ID
	Value int
	Err   error
}

// Results is the per-actuator outcome of ResetAll.
type Results []Result

// Failures returns only the results that carry an error.
func (r Results) Failures() Results {
	var failed Results
	for _, res := range r {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every failure into one error, or returns nil.
func (r Results) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Observer is called after an actuator's status changes.
// Observers run synchronously on the triggering goroutine while the actuator
// is still locked, so they must not block or trigger the same actuator.
type Observer func(State)

// Registry is the identity-indexed directory of actuators.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	actuators map[ID]*Actuator
	order     []ID
	observers []Observer
	logger    Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actuators: make(map[ID]*Actuator),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Observe registers fn to be told about every successful status change.
func (r *Registry) Observe(fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Register adds a to the registry and returns its ID.
//
// Registering the same instance again is a no-op. A different instance under
// an ID that is already taken fails with ErrDuplicateActuator.
func (r *Registry) Register(a *Actuator) (ID, error) {
	if a == nil || a.ID() == "" {
		return "", ErrInvalidActuator
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.actuators[a.ID()]; ok {
		if existing == a {
			return a.ID(), nil
		}
		return "", fmt.Errorf("%w: %q", ErrDuplicateActuator, a.ID())
	}

	r.actuators[a.ID()] = a
	r.order = append(r.order, a.ID())
	r.logger.Debug("actuator registered", "actuator_id", a.ID(), "label", a.Label())
	return a.ID(), nil
}

// RegisterAllFrom registers every actuator referenced by bindings and
// returns the equivalent ID-keyed actions, in the same order.
func (r *Registry) RegisterAllFrom(bindings []Binding) ([]Action, error) {
	actions := make([]Action, 0, len(bindings))
	for i, b := range bindings {
		id, err := r.Register(b.Actuator)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		actions = append(actions, Action{Actuator: id, Status: b.Status})
	}
	return actions, nil
}

// Lookup returns the actuator registered under id.
func (r *Registry) Lookup(id ID) (*Actuator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actuators[id]
	return a, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs returns the registered IDs in sorted order.
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	ids := make([]ID, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered actuators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns the state of every actuator in registration order.
func (r *Registry) Snapshot() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.order))
	for _, id := range r.order {
		states = append(states, r.actuators[id].State())
	}
	return states
}

// Trigger sets the actuator id to value.
//
// An unknown id fails with *NotFoundError listing the known IDs. A driver
// failure is returned as *FaultError.
func (r *Registry) Trigger(ctx context.Context, id ID, value int) error {
	a, ok := r.Lookup(id)
	if !ok {
		return &NotFoundError{ID: id, Known: r.IDs()}
	}

	return a.apply(ctx, value, r.notify)
}

// TriggerBatch applies actions in order and stops at the first failure.
// Actions after the failing one are not attempted.
func (r *Registry) TriggerBatch(ctx context.Context, actions []Action) error {
	for i, action := range actions {
		if err := r.Trigger(ctx, action.Actuator, action.Status); err != nil {
			return fmt.Errorf("action %d of %d: %w", i+1, len(actions), err)
		}
	}
	return nil
}

// ResetAll sets every registered actuator to 0.
//
// Every actuator is attempted even when some fail. Failures are logged and
// reported in the returned Results; ResetAll itself never fails.
func (r *Registry) ResetAll(ctx context.Context) Results {
	r.mu.RLock()
	targets := make([]*Actuator, 0, len(r.order))
	for _, id := range r.order {
		targets = append(targets, r.actuators[id])
	}
	logger := r.logger
	r.mu.RUnlock()

	results := make(Results, 0, len(targets))
	for _, a := range targets {
		err := a.apply(ctx, 0, r.notify)
		results = append(results, Result{ID: a.ID(), Value: 0, Err: err})
		if err != nil {
			logger.Error("actuator reset failed", "actuator_id", a.ID(), "error", err)
		}
	}

	logger.Info("actuators reset",
		"total", len(results),
		"failed", len(results.Failures()),
	)
	return results
}

func (r *Registry) notify(state State) {
	r.mu.RLock()
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()

	for _, fn := range observers {
		fn(state)
	}
}
