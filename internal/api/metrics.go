package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Scheduler     SchedulerMetrics `json:"scheduler"`
	Actuators     ActuatorMetrics  `json:"actuators"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// SchedulerMetrics summarises the job scheduler.
type SchedulerMetrics struct {
	Running   bool           `json:"running"`
	Completed bool           `json:"completed"`
	Jobs      int            `json:"jobs"`
	ByKind    map[string]int `json:"by_kind"`
}

// ActuatorMetrics counts actuators and how many are on.
type ActuatorMetrics struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// handleMetrics returns runtime, scheduler and actuator statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Scheduler: SchedulerMetrics{
			Running:   s.scheduler.Running(),
			Completed: s.scheduler.Completed(),
			ByKind:    make(map[string]int),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT.Connected = s.mqtt.IsConnected()
	}

	if jobs, err := s.scheduler.Jobs(r.Context()); err == nil {
		metrics.Scheduler.Jobs = len(jobs)
		for _, job := range jobs {
			metrics.Scheduler.ByKind[string(job.Kind)]++
		}
	} else {
		s.logger.Warn("metrics: failed to list jobs", "error", err)
	}

	for _, st := range s.actuators.Snapshot() {
		metrics.Actuators.Total++
		if st.Status != 0 {
			metrics.Actuators.Active++
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
