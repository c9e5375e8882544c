// Package config loads the drying controller configuration.
//
// Values are layered: built-in defaults, then the YAML file, then DRYER_*
// environment variables. Validate reports every problem at once, including
// actuators whose driver needs MQTT while MQTT is disabled.
//
// Secrets (the broker password, the InfluxDB token) belong in the
// environment rather than the file.
//
//	cfg, err := config.Load(os.Getenv("DRYER_CONFIG"))
//	if err != nil {
//	    return err
//	}
//	delay := cfg.Scheduler.StartDelayDuration()
package config
