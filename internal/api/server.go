package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/config"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/logging"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
	"github.com/Alain1405/pi-drying-controller/internal/scheduler"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Scheduler is what the API needs from the job scheduler.
// *scheduler.Scheduler satisfies it.
type Scheduler interface {
	Jobs(ctx context.Context) ([]schedule.Job, error)
	Execute(ctx context.Context, cmd scheduler.Command) error
	Running() bool
	Completed() bool
}

// ActuatorLister returns the current actuator states.
// *actuator.Registry satisfies it.
type ActuatorLister interface {
	Snapshot() []actuator.State
}

// HealthChecker is implemented by infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionStatus reports whether a broker connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Scheduler Scheduler
	Actuators ActuatorLister
	Runs      jobstore.RunRecorder // Optional: run history endpoint
	Database  HealthChecker        // Optional
	MQTT      ConnectionStatus     // Optional
	Version   string
}

// Server is the operator HTTP API.
//
// It is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	scheduler Scheduler
	actuators ActuatorLister
	runs      jobstore.RunRecorder
	database  HealthChecker
	mqtt      ConnectionStatus
	version   string
	startTime time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if deps.Actuators == nil {
		return nil, fmt.Errorf("actuator registry is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		scheduler: deps.Scheduler,
		actuators: deps.Actuators,
		runs:      deps.Runs,
		database:  deps.Database,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
