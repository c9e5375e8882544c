// Package api implements the operator HTTP API of the drying controller.
//
// This package provides:
//   - Read endpoints for actuator state, scheduled jobs and run history
//   - Scheduler commands (start, stop, clear) mirroring the MQTT command topic
//   - Health and runtime metrics for monitoring
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Graceful Degradation
//
// The server runs without MQTT or run history; the affected fields report
// as disconnected or the endpoint returns 404.
package api
