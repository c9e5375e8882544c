// Package influxdb records actuator state changes and job runs in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched; asynchronous write failures are delivered to the
// callback registered with SetOnError.
//
// Measurements:
//
//	actuator_state  tags: actuator_id, label        fields: value
//	job_runs        tags: job_id, action, status    fields: duration_ms
//
// Connect returns ErrDisabled when influxdb.enabled is false; callers treat
// that as "telemetry off" rather than a failure.
package influxdb
