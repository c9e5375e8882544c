package drivers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// Publisher is the subset of the MQTT client drivers need.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Command is the JSON message a bridge receives on a command topic.
type Command struct {
	ID        string      `json:"id"`
	Actuator  actuator.ID `json:"actuator"`
	Command   string      `json:"command"`
	Value     int         `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// MQTTDriver publishes set commands to a relay bridge.
type MQTTDriver struct {
	id        actuator.ID
	topic     string
	qos       byte
	publisher Publisher
}

// NewMQTTDriver creates a relay driver publishing to topic.
func NewMQTTDriver(id actuator.ID, topic string, qos byte, publisher Publisher) *MQTTDriver {
	return &MQTTDriver{id: id, topic: topic, qos: qos, publisher: publisher}
}

// ExecuteAction publishes a "set" command carrying value.
func (d *MQTTDriver) ExecuteAction(ctx context.Context, value int) error {
	return publishCommand(ctx, d.publisher, d.topic, d.qos, Command{
		Actuator: d.id,
		Command:  "set",
		Value:    value,
	})
}

func publishCommand(ctx context.Context, publisher Publisher, topic string, qos byte, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd.ID = uuid.NewString()
	cmd.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}
	if err := publisher.Publish(topic, payload, qos, false); err != nil {
		return fmt.Errorf("publishing to %q: %w", topic, err)
	}
	return nil
}
