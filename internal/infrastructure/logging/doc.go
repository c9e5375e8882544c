// Package logging provides structured logging for the drying controller.
//
// It wraps the standard log/slog package so every component logs with the
// same handler, level filtering and default fields (service, version).
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("job fired", "job_id", "phase-0")
//
// Never log broker passwords or InfluxDB tokens.
package logging
