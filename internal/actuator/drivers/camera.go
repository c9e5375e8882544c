package drivers

import (
	"context"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
)

// CameraCapture is the value that makes the camera take a picture.
const CameraCapture = 1

// CameraDriver asks a camera bridge to take a picture. Any value other than
// CameraCapture switches the camera off.
type CameraDriver struct {
	id        actuator.ID
	topic     string
	qos       byte
	publisher Publisher
}

// NewCameraDriver creates a camera driver publishing to topic.
func NewCameraDriver(id actuator.ID, topic string, qos byte, publisher Publisher) *CameraDriver {
	return &CameraDriver{id: id, topic: topic, qos: qos, publisher: publisher}
}

// ExecuteAction publishes "capture" for CameraCapture and "off" otherwise.
func (d *CameraDriver) ExecuteAction(ctx context.Context, value int) error {
	command := "off"
	if value == CameraCapture {
		command = "capture"
	}
	return publishCommand(ctx, d.publisher, d.topic, d.qos, Command{
		Actuator: d.id,
		Command:  command,
		Value:    value,
	})
}
