package drivers

import (
	"fmt"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/config"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/mqtt"
)

// Deps are the shared collaborators drivers are built from. Publisher may be
// nil when no actuator uses an MQTT-backed driver.
type Deps struct {
	Publisher Publisher
	Topics    mqtt.Topics
	QoS       byte
	Logger    actuator.Logger
}

// New builds the driver for one configured actuator.
func New(cfg config.ActuatorConfig, deps Deps) (actuator.Driver, error) {
	id := actuator.ID(cfg.ID)
	topic := cfg.Topic
	if topic == "" {
		topic = deps.Topics.ActuatorCommand(cfg.ID)
	}

	switch cfg.Driver {
	case "", config.DriverLog:
		return NewLogDriver(id, deps.Logger), nil
	case config.DriverMQTT, config.DriverCamera:
		if deps.Publisher == nil {
			return nil, fmt.Errorf("actuator %q: driver %q requires mqtt", cfg.ID, cfg.Driver)
		}
		if cfg.Driver == config.DriverCamera {
			return NewCameraDriver(id, topic, deps.QoS, deps.Publisher), nil
		}
		return NewMQTTDriver(id, topic, deps.QoS, deps.Publisher), nil
	default:
		return nil, fmt.Errorf("actuator %q: unknown driver %q", cfg.ID, cfg.Driver)
	}
}

// Build creates and registers an actuator for every configured entry.
func Build(cfgs []config.ActuatorConfig, deps Deps) (*actuator.Registry, error) {
	reg := actuator.NewRegistry()
	if deps.Logger != nil {
		reg.SetLogger(deps.Logger)
	}

	for _, c := range cfgs {
		driver, err := New(c, deps)
		if err != nil {
			return nil, err
		}
		label := c.Label
		if label == "" {
			label = c.ID
		}
		if _, err := reg.Register(actuator.New(actuator.ID(c.ID), label, driver)); err != nil {
			return nil, fmt.Errorf("registering actuator %q: %w", c.ID, err)
		}
	}
	return reg, nil
}
