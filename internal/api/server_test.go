package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/config"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/logging"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
	"github.com/Alain1405/pi-drying-controller/internal/scheduler"
)

// ─── Mocks ──────────────────────────────────────────────────────────

type mockScheduler struct {
	mu        sync.Mutex
	jobs      []schedule.Job
	jobsErr   error
	running   bool
	completed bool
	commands  []scheduler.Command
	execErr   error
}

func (m *mockScheduler) Jobs(context.Context) ([]schedule.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs, m.jobsErr
}

func (m *mockScheduler) Execute(_ context.Context, cmd scheduler.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, cmd)
	if m.execErr != nil {
		return m.execErr
	}
	switch cmd {
	case scheduler.CommandStart:
		m.running = true
	case scheduler.CommandStop:
		m.running = false
	}
	return nil
}

func (m *mockScheduler) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockScheduler) Completed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

type mockActuators []actuator.State

func (m mockActuators) Snapshot() []actuator.State { return m }

type mockRuns struct {
	gotJobID string
	gotLimit int
	runs     []jobstore.Run
}

func (m *mockRuns) RecordRun(context.Context, jobstore.Run) error { return nil }

func (m *mockRuns) ListRuns(_ context.Context, jobID string, limit int) ([]jobstore.Run, error) {
	m.gotJobID = jobID
	m.gotLimit = limit
	return m.runs, nil
}

type mockHealth struct{ err error }

func (m mockHealth) HealthCheck(context.Context) error { return m.err }

type mockConn bool

func (m mockConn) IsConnected() bool { return bool(m) }

// ─── Helpers ────────────────────────────────────────────────────────

func testServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Scheduler == nil {
		deps.Scheduler = &mockScheduler{}
	}
	if deps.Actuators == nil {
		deps.Actuators = mockActuators{}
	}
	deps.Version = "test"

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.buildRouter()
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: response is not JSON: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, body
}

// ─── Construction ───────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.Discard()
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Scheduler: &mockScheduler{}, Actuators: mockActuators{}}},
		{"no scheduler", Deps{Logger: log, Actuators: mockActuators{}}},
		{"no actuators", Deps{Logger: log, Scheduler: &mockScheduler{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil")
			}
		})
	}
}

func TestServer_CloseBeforeStart(t *testing.T) {
	srv, err := New(Deps{Logger: logging.Discard(), Scheduler: &mockScheduler{}, Actuators: mockActuators{}, Config: config.APIConfig{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() = nil before Start")
	}
}

// ─── Health & Metrics ───────────────────────────────────────────────

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		deps       Deps
		wantStatus string
	}{
		{"no optional deps", Deps{}, "ok"},
		{"all healthy", Deps{Database: mockHealth{}, MQTT: mockConn(true)}, "ok"},
		{"mqtt down", Deps{Database: mockHealth{}, MQTT: mockConn(false)}, "degraded"},
		{"database down", Deps{Database: mockHealth{err: errors.New("disk I/O error")}}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, testServer(t, tt.deps), http.MethodGet, "/api/v1/health")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	sched := &mockScheduler{
		running: true,
		jobs: []schedule.Job{
			{ID: "phase-0", Kind: schedule.KindDate},
			{ID: "shutdown", Kind: schedule.KindDate},
			{ID: "interval-0", Kind: schedule.KindInterval},
		},
	}
	acts := mockActuators{{ID: "heat", Status: 1}, {ID: "light", Status: 0}}

	_, body := do(t, testServer(t, Deps{Scheduler: sched, Actuators: acts}), http.MethodGet, "/api/v1/metrics")

	s, _ := body["scheduler"].(map[string]any)
	if s["jobs"] != float64(3) || s["running"] != true {
		t.Errorf("scheduler metrics = %v", s)
	}
	byKind, _ := s["by_kind"].(map[string]any)
	if byKind["date"] != float64(2) || byKind["interval"] != float64(1) {
		t.Errorf("by_kind = %v", byKind)
	}
	a, _ := body["actuators"].(map[string]any)
	if a["total"] != float64(2) || a["active"] != float64(1) {
		t.Errorf("actuator metrics = %v", a)
	}
}

// ─── Read Endpoints ─────────────────────────────────────────────────

func TestListActuators(t *testing.T) {
	acts := mockActuators{{ID: "heat", Label: "Heat", Status: 1}}
	_, body := do(t, testServer(t, Deps{Actuators: acts}), http.MethodGet, "/api/v1/actuators")

	if body["count"] != float64(1) {
		t.Errorf("count = %v", body["count"])
	}
	list, _ := body["actuators"].([]any)
	first, _ := list[0].(map[string]any)
	if first["id"] != "heat" || first["status"] != float64(1) {
		t.Errorf("actuator = %v", first)
	}
}

func TestListJobs(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	sched := &mockScheduler{jobs: []schedule.Job{
		{ID: "shutdown", Kind: schedule.KindDate, RunAt: at, NextRunAt: at, Action: schedule.ResetAllAction()},
	}}
	_, body := do(t, testServer(t, Deps{Scheduler: sched}), http.MethodGet, "/api/v1/jobs")

	list, _ := body["jobs"].([]any)
	if len(list) != 1 {
		t.Fatalf("jobs = %v", body["jobs"])
	}
	job, _ := list[0].(map[string]any)
	action, _ := job["action"].(map[string]any)
	if job["id"] != "shutdown" || action["type"] != "reset_all" {
		t.Errorf("job = %v", job)
	}
}

func TestListJobs_Error(t *testing.T) {
	sched := &mockScheduler{jobsErr: errors.New("database is locked")}
	rec, body := do(t, testServer(t, Deps{Scheduler: sched}), http.MethodGet, "/api/v1/jobs")
	if rec.Code != http.StatusInternalServerError || body["code"] != ErrCodeInternal {
		t.Errorf("status = %d, body = %v", rec.Code, body)
	}
}

func TestListRuns(t *testing.T) {
	runs := &mockRuns{runs: []jobstore.Run{{ID: "r1", JobID: "phase-0", Status: jobstore.RunCompleted}}}
	h := testServer(t, Deps{Runs: runs})

	rec, body := do(t, h, http.MethodGet, "/api/v1/runs?job_id=phase-0&limit=10")
	if rec.Code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
	if runs.gotJobID != "phase-0" || runs.gotLimit != 10 {
		t.Errorf("ListRuns(%q, %d)", runs.gotJobID, runs.gotLimit)
	}

	for _, bad := range []string{"0", "abc", "501"} {
		if rec, _ := do(t, h, http.MethodGet, "/api/v1/runs?limit="+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestListRuns_WithoutHistory(t *testing.T) {
	rec, _ := do(t, testServer(t, Deps{}), http.MethodGet, "/api/v1/runs")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// ─── Scheduler Commands ─────────────────────────────────────────────

func TestSchedulerCommands(t *testing.T) {
	sched := &mockScheduler{}
	h := testServer(t, Deps{Scheduler: sched})

	rec, body := do(t, h, http.MethodPost, "/api/v1/scheduler/start")
	if rec.Code != http.StatusOK || body["running"] != true {
		t.Fatalf("start: status = %d, body = %v", rec.Code, body)
	}

	rec, body = do(t, h, http.MethodPost, "/api/v1/scheduler/stop")
	if rec.Code != http.StatusOK || body["running"] != false {
		t.Fatalf("stop: status = %d, body = %v", rec.Code, body)
	}

	if rec, _ := do(t, h, http.MethodPost, "/api/v1/scheduler/clear"); rec.Code != http.StatusOK {
		t.Fatalf("clear: status = %d", rec.Code)
	}

	want := []scheduler.Command{scheduler.CommandStart, scheduler.CommandStop, scheduler.CommandClear}
	if len(sched.commands) != len(want) {
		t.Fatalf("commands = %v, want %v", sched.commands, want)
	}
	for i := range want {
		if sched.commands[i] != want[i] {
			t.Errorf("command %d = %s, want %s", i, sched.commands[i], want[i])
		}
	}

	_, body = do(t, h, http.MethodGet, "/api/v1/scheduler/")
	if body["running"] != false {
		t.Errorf("status = %v", body)
	}
}

func TestSchedulerCommand_Unknown(t *testing.T) {
	sched := &mockScheduler{}
	rec, _ := do(t, testServer(t, Deps{Scheduler: sched}), http.MethodPost, "/api/v1/scheduler/reboot")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(sched.commands) != 0 {
		t.Errorf("unknown command executed: %v", sched.commands)
	}
}

func TestSchedulerCommand_Failure(t *testing.T) {
	sched := &mockScheduler{execErr: errors.New("actuator \"heat\" fault")}
	rec, body := do(t, testServer(t, Deps{Scheduler: sched}), http.MethodPost, "/api/v1/scheduler/stop")
	if rec.Code != http.StatusInternalServerError || body["message"] == "" {
		t.Errorf("status = %d, body = %v", rec.Code, body)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, err := New(Deps{Logger: logging.Discard(), Scheduler: &mockScheduler{}, Actuators: mockActuators{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
