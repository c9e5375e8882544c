// Package telemetry mirrors actuator state and job runs to the outside world.
//
// Actuator state changes are published as retained MQTT messages on
// <prefix>/actuator/<id>/state, so a dashboard that connects late still sees
// the current value, and written to InfluxDB as actuator_state points. Job
// runs are published on <prefix>/scheduler/jobs and written as job_runs
// points.
//
// Either sink may be nil; the reporter then skips it.
package telemetry
