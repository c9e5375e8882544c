package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the drying controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig       `yaml:"site"`
	Database  DatabaseConfig   `yaml:"database"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	API       APIConfig        `yaml:"api"`
	InfluxDB  InfluxDBConfig   `yaml:"influxdb"`
	Logging   LoggingConfig    `yaml:"logging"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Actuators []ActuatorConfig `yaml:"actuators"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
// The job store lives here, so the file must be on persistent storage.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the operator HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SchedulerConfig controls how the timetable is turned into jobs.
type SchedulerConfig struct {
	// ScheduleFile is the YAML timetable (start time, phases, intervals).
	ScheduleFile string `yaml:"schedule_file"`

	// StartDelay is added to the schedule start time (seconds).
	// Default: 5
	StartDelay int `yaml:"start_delay"`

	// MisfireGrace is how late a one-shot job may fire after a restart (seconds).
	// 0 means overdue jobs always fire. Reset jobs ignore the grace.
	MisfireGrace int `yaml:"misfire_grace"`

	// Monitor enables the periodic job listing in the log.
	Monitor bool `yaml:"monitor"`

	// MonitorInterval is the monitor period (seconds). Default: 5
	MonitorInterval int `yaml:"monitor_interval"`

	// ExitOnComplete stops the process once the shutdown job has fired.
	// When false, interval rules keep running until a stop signal.
	ExitOnComplete bool `yaml:"exit_on_complete"`
}

// ActuatorConfig declares one actuator and the driver behind it.
type ActuatorConfig struct {
	// ID is the stable identity used by schedules and persisted jobs.
	ID string `yaml:"id"`

	// Label is the human-readable name; need not be unique.
	Label string `yaml:"label"`

	// Driver selects the implementation: "log", "mqtt" or "camera".
	Driver string `yaml:"driver"`

	// Topic overrides the MQTT command topic for mqtt/camera drivers.
	Topic string `yaml:"topic,omitempty"`
}

// Supported actuator drivers.
const (
	DriverLog    = "log"
	DriverMQTT   = "mqtt"
	DriverCamera = "camera"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DRYER_SECTION_KEY
// For example: DRYER_DATABASE_PATH, DRYER_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults for a Raspberry Pi install.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "dryer-001",
			Name:     "Drying Controller",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/dryer.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "drying-controller",
			},
			QoS:         1,
			TopicPrefix: "dryer",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Scheduler: SchedulerConfig{
			ScheduleFile:    "configs/schedule.yaml",
			StartDelay:      5,
			MonitorInterval: 5,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DRYER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("DRYER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DRYER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DRYER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("DRYER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("DRYER_SCHEDULE_FILE"); v != "" {
		cfg.Scheduler.ScheduleFile = v
	}
	if v := os.Getenv("DRYER_START_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.StartDelay = n
		}
	}

	if v := os.Getenv("DRYER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Scheduler.ScheduleFile == "" {
		errs = append(errs, "scheduler.schedule_file is required")
	}
	if c.Scheduler.StartDelay < 0 {
		errs = append(errs, "scheduler.start_delay must not be negative")
	}
	if c.Scheduler.MisfireGrace < 0 {
		errs = append(errs, "scheduler.misfire_grace must not be negative")
	}
	if c.Scheduler.Monitor && c.Scheduler.MonitorInterval <= 0 {
		errs = append(errs, "scheduler.monitor_interval must be positive when monitor is enabled")
	}

	errs = append(errs, c.validateActuators()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateActuators checks actuator declarations for missing or duplicate IDs
// and drivers that need MQTT when MQTT is disabled.
func (c *Config) validateActuators() []string {
	var errs []string
	seen := make(map[string]bool, len(c.Actuators))

	for i, a := range c.Actuators {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("actuators[%d].id is required", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Sprintf("actuators[%d].id %q is duplicated", i, a.ID))
		}
		seen[a.ID] = true

		switch a.Driver {
		case "", DriverLog:
		case DriverMQTT, DriverCamera:
			if !c.MQTT.Enabled {
				errs = append(errs, fmt.Sprintf("actuator %q uses driver %q but mqtt is disabled", a.ID, a.Driver))
			}
		default:
			errs = append(errs, fmt.Sprintf("actuator %q has unknown driver %q", a.ID, a.Driver))
		}
	}

	return errs
}

// StartDelayDuration returns the schedule start delay as a Duration.
func (s SchedulerConfig) StartDelayDuration() time.Duration {
	return time.Duration(s.StartDelay) * time.Second
}

// MisfireGraceDuration returns the misfire grace as a Duration.
func (s SchedulerConfig) MisfireGraceDuration() time.Duration {
	return time.Duration(s.MisfireGrace) * time.Second
}

// MonitorIntervalDuration returns the monitor period as a Duration.
func (s SchedulerConfig) MonitorIntervalDuration() time.Duration {
	return time.Duration(s.MonitorInterval) * time.Second
}

// Location returns the site timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
