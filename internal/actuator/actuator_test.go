package actuator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ─── Mock Driver ────────────────────────────────────────────────────

// recordingDriver records every value it is asked to apply and fails when
// the value is listed in failOn.
type recordingDriver struct {
	mu     sync.Mutex
	calls  []int
	failOn map[int]bool
}

func (d *recordingDriver) ExecuteAction(_ context.Context, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, value)
	if d.failOn[value] {
		return errors.New("relay did not respond")
	}
	return nil
}

func (d *recordingDriver) getCalls() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	cpy := make([]int, len(d.calls))
	copy(cpy, d.calls)
	return cpy
}

// ─── Actuator ───────────────────────────────────────────────────────

func TestActuator_TriggerUpdatesStatus(t *testing.T) {
	driver := &recordingDriver{}
	a := New("heat", "Heat", driver)

	if a.Status() != 0 {
		t.Fatalf("initial Status() = %d, want 0", a.Status())
	}
	if err := a.Trigger(context.Background(), 1); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if a.Status() != 1 {
		t.Errorf("Status() = %d, want 1", a.Status())
	}
	if err := a.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if a.Status() != 0 {
		t.Errorf("Status() after Reset = %d, want 0", a.Status())
	}
	if got := driver.getCalls(); len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("driver calls = %v, want [1 0]", got)
	}
}

func TestActuator_FailureKeepsStatus(t *testing.T) {
	driver := &recordingDriver{failOn: map[int]bool{2: true}}
	a := New("fan-1", "Fan 1", driver)

	if err := a.Trigger(context.Background(), 1); err != nil {
		t.Fatalf("Trigger(1) error = %v", err)
	}

	err := a.Trigger(context.Background(), 2)
	if !errors.Is(err, ErrActuatorFault) {
		t.Fatalf("Trigger(2) error = %v, want ErrActuatorFault", err)
	}
	var fault *FaultError
	if !errors.As(err, &fault) || fault.ID != "fan-1" || fault.Value != 2 {
		t.Errorf("fault = %+v, want fan-1/2", fault)
	}
	if a.Status() != 1 {
		t.Errorf("Status() = %d, want 1 (unchanged after failure)", a.Status())
	}
	if len(driver.getCalls()) != 2 {
		t.Errorf("expected no retry, driver calls = %v", driver.getCalls())
	}
}

func TestActuator_SerialisesDriverCalls(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	driver := DriverFunc(func(context.Context, int) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})
	a := New("heat", "Heat", driver)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_ = a.Trigger(context.Background(), v%2)
		}(i)
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent driver calls = %d, want 1", maxInFlight.Load())
	}
}
