package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	measurementActuatorState = "actuator_state"
	measurementJobRuns       = "job_runs"
)

// WriteActuatorState records the value an actuator was set to.
func (c *Client) WriteActuatorState(actuatorID, label string, value int, at time.Time) {
	c.WritePointWithTime(measurementActuatorState,
		map[string]string{
			"actuator_id": actuatorID,
			"label":       label,
		},
		map[string]interface{}{
			"value": value,
		},
		at,
	)
}

// WriteJobRun records one execution of a scheduled job.
func (c *Client) WriteJobRun(jobID, action, status string, startedAt time.Time, duration time.Duration) {
	c.WritePointWithTime(measurementJobRuns,
		map[string]string{
			"job_id": jobID,
			"action": action,
			"status": status,
		},
		map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
		},
		startedAt,
	)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
// Points written while disconnected are dropped.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
