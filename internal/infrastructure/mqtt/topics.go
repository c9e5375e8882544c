package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "dryer"

// Topics builds the controller's MQTT topics under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "dryer"}
//	topics.ActuatorState("fan-1") // "dryer/actuator/fan-1/state"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// ActuatorCommand is the topic a bridge listens on for one actuator.
func (t Topics) ActuatorCommand(id string) string {
	return fmt.Sprintf("%s/actuator/%s/command", t.prefix(), id)
}

// ActuatorState carries the retained last applied value of one actuator.
func (t Topics) ActuatorState(id string) string {
	return fmt.Sprintf("%s/actuator/%s/state", t.prefix(), id)
}

// AllActuatorStates matches the state topic of every actuator.
func (t Topics) AllActuatorStates() string {
	return fmt.Sprintf("%s/actuator/+/state", t.prefix())
}

// SystemStatus carries the controller's retained online/offline status.
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// SystemCommand receives operator commands (start, stop, clear).
func (t Topics) SystemCommand() string {
	return fmt.Sprintf("%s/system/command", t.prefix())
}

// JobEvents carries one message per job run.
func (t Topics) JobEvents() string {
	return fmt.Sprintf("%s/scheduler/jobs", t.prefix())
}

// All matches every topic under the prefix.
func (t Topics) All() string {
	return fmt.Sprintf("%s/#", t.prefix())
}
