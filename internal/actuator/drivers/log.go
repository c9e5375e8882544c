package drivers

import (
	"context"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// LogDriver stands in for hardware by logging every value it is given.
type LogDriver struct {
	id     actuator.ID
	logger actuator.Logger
}

// NewLogDriver creates a driver that only logs.
func NewLogDriver(id actuator.ID, logger actuator.Logger) *LogDriver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogDriver{id: id, logger: logger}
}

// ExecuteAction logs the value and always succeeds.
func (d *LogDriver) ExecuteAction(_ context.Context, value int) error {
	d.logger.Info("actuator set", "actuator_id", d.id, "value", value, "driver", "log")
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
