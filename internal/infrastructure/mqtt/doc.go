// Package mqtt provides the MQTT client the drying controller uses to reach
// relay and camera bridges, publish actuator state, and receive operator
// commands.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS validation and a payload size cap
//   - Subscriptions that are restored after a reconnect
//   - Last Will and Testament so the controller's offline state is visible
//
// # Topics
//
// Every topic lives under the configured prefix (default "dryer"):
//
//	dryer/actuator/{id}/command   commands to a relay or camera bridge
//	dryer/actuator/{id}/state     retained last applied value
//	dryer/system/status           retained online/offline status (LWT)
//	dryer/system/command          operator commands (start, stop, clear)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Publish(topics.ActuatorCommand("fan-1"), []byte(`{"value":1}`), 1, false)
package mqtt
