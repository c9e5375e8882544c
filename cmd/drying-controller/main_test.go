package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/config"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/database"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
)

// writeTestConfig writes a config with MQTT, InfluxDB and the API disabled
// and log-only actuators, and points DRYER_CONFIG at it.
func writeTestConfig(t *testing.T, schedule string, exitOnComplete bool) (dbPath string) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath = filepath.Join(tmpDir, "dryer.db")
	schedulePath := filepath.Join(tmpDir, "schedule.yaml")
	configPath := filepath.Join(tmpDir, "config.yaml")

	exit := "false"
	if exitOnComplete {
		exit = "true"
	}

	configContent := `
site:
  id: test-dryer

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

logging:
  level: error
  format: text
  output: stdout

scheduler:
  schedule_file: "` + schedulePath + `"
  start_delay: 0
  exit_on_complete: ` + exit + `

actuators:
  - id: light
    label: Light
  - id: heat
    label: Heat
  - id: fan-1
    label: Fan 1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if err := os.WriteFile(schedulePath, []byte(schedule), 0600); err != nil {
		t.Fatalf("failed to write test schedule: %v", err)
	}

	t.Setenv("DRYER_CONFIG", configPath)
	return dbPath
}

func openStore(t *testing.T, dbPath string) *jobstore.SQLiteStore {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return jobstore.NewSQLiteStore(db)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("DRYER_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, options{}); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidScheduleIsFatal verifies an unknown actuator in the
// schedule stops startup before anything is persisted.
func TestRun_InvalidScheduleIsFatal(t *testing.T) {
	dbPath := writeTestConfig(t, `
phases:
  - duration_minutes: 5
    actions:
      - {actuator: heater, status: 1}
`, true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, options{}); err == nil {
		t.Fatal("run() should fail with an unknown actuator")
	}

	jobs, err := openStore(t, dbPath).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("persisted %d jobs from an invalid schedule", len(jobs))
	}
}

// TestRun_ExitsOnComplete runs a sub-second schedule to completion.
func TestRun_ExitsOnComplete(t *testing.T) {
	dbPath := writeTestConfig(t, `
phases:
  - duration_minutes: 0.005
    actions:
      - {actuator: light, status: 1}
      - {actuator: heat, status: 1}
`, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, options{}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("run() returned only after the timeout")
	}

	store := openStore(t, dbPath)
	jobs, _ := store.List(context.Background())
	if len(jobs) != 0 {
		t.Errorf("jobs left after completion: %+v", jobs)
	}
	runs, err := store.ListRuns(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("recorded %d runs, want 2", len(runs))
	}
}

// TestRun_ResumesAndClears verifies a second start keeps the persisted
// timetable and --clear replaces it.
func TestRun_ResumesAndClears(t *testing.T) {
	dbPath := writeTestConfig(t, `
start_time: 2099-01-01T08:00:00Z
phases:
  - duration_minutes: 30
    actions:
      - {actuator: heat, status: 1}
  - duration_minutes: 30
    actions:
      - {actuator: fan-1, status: 1}
`, false)

	runFor := func(opts options) {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := run(ctx, opts); err != nil {
			t.Fatalf("run() error = %v", err)
		}
	}

	runFor(options{})
	runFor(options{})

	jobs, err := openStore(t, dbPath).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("after restart %d jobs, want 3", len(jobs))
	}

	runFor(options{clear: true})
	jobs, _ = openStore(t, dbPath).List(context.Background())
	if len(jobs) != 3 {
		t.Errorf("after --clear %d jobs, want 3 recompiled", len(jobs))
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("DRYER_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("DRYER_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
