package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Alain1405/pi-drying-controller/internal/scheduler"
)

// healthCheckTimeout bounds the dependency checks of /health.
const healthCheckTimeout = 2 * time.Second

// maxRunsLimit caps the limit query parameter of /runs.
const maxRunsLimit = 500

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Get("/actuators", s.handleListActuators)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/runs", s.handleListRuns)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/", s.handleSchedulerStatus)
			r.Post("/{command}", s.handleSchedulerCommand)
		})
	})

	return r
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// handleHealth reports "ok", or "degraded" when a dependency check fails.
// The scheduler keeps running without MQTT, so degraded still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: s.version, Checks: map[string]string{}}

	if s.database != nil {
		if err := s.database.HealthCheck(ctx); err != nil {
			resp.Checks["database"] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			resp.Checks["mqtt"] = "ok"
		} else {
			resp.Checks["mqtt"] = "disconnected"
			resp.Status = "degraded"
		}
	}
	if s.scheduler.Running() {
		resp.Checks["scheduler"] = "running"
	} else {
		resp.Checks["scheduler"] = "stopped"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListActuators(w http.ResponseWriter, _ *http.Request) {
	states := s.actuators.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"actuators": states,
		"count":     len(states),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.scheduler.Jobs(r.Context())
	if err != nil {
		s.logger.Error("failed to list jobs", "error", err)
		writeInternalError(w, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleListRuns returns run history, newest first.
// Query parameters: job_id (optional), limit (default 50).
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeNotFound(w, "run history is not available")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("job_id"), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// SchedulerStatus is the body of the scheduler endpoints.
type SchedulerStatus struct {
	Running   bool `json:"running"`
	Completed bool `json:"completed"`
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.schedulerStatus())
}

// handleSchedulerCommand applies start, stop or clear.
func (s *Server) handleSchedulerCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := scheduler.ParseCommand([]byte(chi.URLParam(r, "command")))
	if err != nil {
		if errors.Is(err, scheduler.ErrUnknownCommand) {
			writeNotFound(w, "unknown scheduler command")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	s.logger.Info("scheduler command received", "command", string(cmd), "source", "api")
	if err := s.scheduler.Execute(r.Context(), cmd); err != nil {
		s.logger.Error("scheduler command failed", "command", string(cmd), "error", err)
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.schedulerStatus())
}

func (s *Server) schedulerStatus() SchedulerStatus {
	return SchedulerStatus{
		Running:   s.scheduler.Running(),
		Completed: s.scheduler.Completed(),
	}
}
