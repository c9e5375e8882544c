// Package drivers provides the actuator.Driver implementations selected by
// the driver field of each configured actuator:
//
//   - log:    no hardware, the value is only logged (bench testing)
//   - mqtt:   a relay bridge listening on the actuator's command topic
//   - camera: a camera bridge; value 1 takes a picture, anything else is off
//
// Build turns the actuators section of config.yaml into a populated
// actuator.Registry.
package drivers
