package telemetry

import (
	"encoding/json"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/mqtt"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
)

// Logger defines the logging interface used by the Reporter.
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

// Publisher sends MQTT messages. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// PointWriter writes time-series points. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteActuatorState(actuatorID, label string, value int, at time.Time)
	WriteJobRun(jobID, action, status string, startedAt time.Time, duration time.Duration)
}

// StateMessage is the retained payload of an actuator state topic.
type StateMessage struct {
	ID        actuator.ID `json:"id"`
	Label     string      `json:"label"`
	Status    int         `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// JobEvent is the payload published after every job run.
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Kind       string    `json:"kind"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Reporter fans state changes and job runs out to MQTT and InfluxDB.
type Reporter struct {
	publisher Publisher
	topics    mqtt.Topics
	qos       byte
	points    PointWriter
	logger    Logger
	now       func() time.Time
}

// New creates a reporter. publisher and points may be nil.
func New(publisher Publisher, topics mqtt.Topics, qos byte, points PointWriter) *Reporter {
	return &Reporter{
		publisher: publisher,
		topics:    topics,
		qos:       qos,
		points:    points,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the reporter.
func (r *Reporter) SetLogger(logger Logger) {
	r.logger = logger
}

// ActuatorChanged reports a new actuator state. It has the shape of
// actuator.Observer.
func (r *Reporter) ActuatorChanged(state actuator.State) {
	at := r.now().UTC()

	if r.points != nil {
		r.points.WriteActuatorState(string(state.ID), state.Label, state.Status, at)
	}
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(StateMessage{
		ID:        state.ID,
		Label:     state.Label,
		Status:    state.Status,
		Timestamp: at,
	})
	if err != nil {
		r.logger.Error("failed to marshal actuator state", "actuator_id", state.ID, "error", err)
		return
	}
	if err := r.publisher.Publish(r.topics.ActuatorState(string(state.ID)), payload, r.qos, true); err != nil {
		r.logger.Warn("failed to publish actuator state", "actuator_id", state.ID, "error", err)
	}
}

// PublishSnapshot republishes every state, typically after an MQTT reconnect.
func (r *Reporter) PublishSnapshot(states []actuator.State) {
	for _, st := range states {
		r.ActuatorChanged(st)
	}
}

// JobRan reports a finished job run. It has the shape of
// scheduler.RunObserver.
func (r *Reporter) JobRan(job schedule.Job, run jobstore.Run) {
	if r.points != nil {
		r.points.WriteJobRun(run.JobID, string(run.ActionType), string(run.Status), run.StartedAt, run.Duration())
	}
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(JobEvent{
		JobID:      run.JobID,
		Kind:       string(job.Kind),
		Action:     string(run.ActionType),
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.UTC(),
		DurationMS: run.Duration().Milliseconds(),
		Error:      run.Error,
	})
	if err != nil {
		r.logger.Error("failed to marshal job event", "job_id", run.JobID, "error", err)
		return
	}
	if err := r.publisher.Publish(r.topics.JobEvents(), payload, r.qos, false); err != nil {
		r.logger.Warn("failed to publish job event", "job_id", run.JobID, "error", err)
	}
}
