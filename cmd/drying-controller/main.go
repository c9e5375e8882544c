// Drying Controller - persistent actuation scheduler for a Raspberry Pi dryer.
//
// The controller drives relays (light, fans, heat) and a camera through a
// timed sequence of drying phases, then switches everything off. The
// timetable is persisted in SQLite so a reboot resumes it rather than
// starting over.
//
// Usage:
//
//	drying-controller [--clear]
//
// --clear removes the persisted timetable first, so the schedule file is
// compiled afresh. The configuration path is taken from DRYER_CONFIG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	_ "github.com/Alain1405/pi-drying-controller/migrations"

	"github.com/Alain1405/pi-drying-controller/internal/actuator"
	"github.com/Alain1405/pi-drying-controller/internal/actuator/drivers"
	"github.com/Alain1405/pi-drying-controller/internal/api"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/config"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/database"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/influxdb"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/logging"
	"github.com/Alain1405/pi-drying-controller/internal/infrastructure/mqtt"
	"github.com/Alain1405/pi-drying-controller/internal/jobstore"
	"github.com/Alain1405/pi-drying-controller/internal/schedule"
	"github.com/Alain1405/pi-drying-controller/internal/scheduler"
	"github.com/Alain1405/pi-drying-controller/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// jobDrainTimeout bounds how long shutdown waits for running jobs before
// closing the database under them.
const jobDrainTimeout = 10 * time.Second

// options are the command-line switches.
type options struct {
	clear bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.clear, "clear", false, "remove persisted jobs before starting")
	flag.Parse()

	// SIGINT/SIGTERM cancel ctx; run then stops the scheduler, which resets
	// every actuator before the process exits.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, opts options) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting drying controller",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"site", cfg.Site.ID,
		"timezone", cfg.Location().String(),
		"level", cfg.Logging.Level,
	)

	// Database and job store
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	store := jobstore.NewSQLiteStore(db)
	if opts.clear {
		if clearErr := store.Clear(ctx); clearErr != nil {
			return fmt.Errorf("clearing persisted jobs: %w", clearErr)
		}
		log.Info("persisted jobs cleared")
	}

	// MQTT (optional)
	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // Validated to 0..2
	var mqttClient *mqtt.Client
	var publisher telemetry.Publisher
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		publisher = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var points telemetry.PointWriter
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		points = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Actuators
	var driverPublisher drivers.Publisher
	if mqttClient != nil {
		driverPublisher = mqttClient
	}
	registry, err := drivers.Build(cfg.Actuators, drivers.Deps{
		Publisher: driverPublisher,
		Topics:    topics,
		QoS:       qos,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("building actuators: %w", err)
	}
	log.Info("actuators registered", "count", registry.Len(), "ids", registry.IDs())

	reporter := telemetry.New(publisher, topics, qos, points)
	reporter.SetLogger(log)
	registry.Observe(reporter.ActuatorChanged)

	// Scheduler
	spec, err := schedule.LoadSpec(cfg.Scheduler.ScheduleFile)
	if err != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		StartDelay:      cfg.Scheduler.StartDelayDuration(),
		MisfireGrace:    cfg.Scheduler.MisfireGraceDuration(),
		Monitor:         cfg.Scheduler.Monitor,
		MonitorInterval: cfg.Scheduler.MonitorIntervalDuration(),
	}, registry, store, jobstore.NewMemoryStore())
	sched.SetLogger(log)
	sched.SetRecorder(store)
	sched.OnRun(reporter.JobRan)

	if recoverErr := sched.Recover(ctx, spec); recoverErr != nil {
		return fmt.Errorf("recovering schedule: %w", recoverErr)
	}

	if mqttClient != nil {
		if subErr := subscribeCommands(ctx, mqttClient, sched, log); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			reporter.PublishSnapshot(registry.Snapshot())
		})
	}

	// Operator API (optional)
	if cfg.API.Enabled {
		srv, apiErr := newAPIServer(cfg, log, sched, registry, store, db, mqttClient)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	sched.Start(ctx)
	defer shutdownScheduler(sched, log)

	reporter.PublishSnapshot(registry.Snapshot())
	notifySystemd(log, daemon.SdNotifyReady)
	log.Info("initialisation complete")

	var completed <-chan struct{}
	if cfg.Scheduler.ExitOnComplete {
		completed = sched.Done()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case <-completed:
		log.Info("drying schedule complete, exiting")
	}

	notifySystemd(log, daemon.SdNotifyStopping)

	// Deferred calls run in reverse order: scheduler stop (actuators reset),
	// API, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DRYER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DRYER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// subscribeCommands routes <prefix>/system/command messages to the scheduler.
// Commands run off the MQTT callback goroutine because stop publishes relay
// commands and waits for their acknowledgement.
func subscribeCommands(ctx context.Context, client *mqtt.Client, sched *scheduler.Scheduler, log *logging.Logger) error {
	topic := client.Topics().SystemCommand()
	return client.Subscribe(topic, client.QoS(), func(_ string, payload []byte) error {
		cmd, err := scheduler.ParseCommand(payload)
		if err != nil {
			return err
		}
		log.Info("scheduler command received", "command", string(cmd), "source", "mqtt")
		go func() {
			if execErr := sched.Execute(context.WithoutCancel(ctx), cmd); execErr != nil {
				log.Error("scheduler command failed", "command", string(cmd), "error", execErr)
			}
		}()
		return nil
	})
}

func newAPIServer(
	cfg *config.Config,
	log *logging.Logger,
	sched *scheduler.Scheduler,
	registry *actuator.Registry,
	store *jobstore.SQLiteStore,
	db *database.DB,
	mqttClient *mqtt.Client,
) (*api.Server, error) {
	deps := api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Scheduler: sched,
		Actuators: registry,
		Runs:      store,
		Database:  db,
		Version:   version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	return api.New(deps)
}

// shutdownScheduler stops dispatch, resets the actuators and gives running
// jobs a moment to finish before the stores are closed.
func shutdownScheduler(sched *scheduler.Scheduler, log *logging.Logger) {
	results := sched.Stop(context.Background())
	log.Info("actuators reset on shutdown",
		"total", len(results),
		"failed", len(results.Failures()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), jobDrainTimeout)
	defer cancel()
	if err := sched.Wait(ctx); errors.Is(err, context.DeadlineExceeded) {
		log.Warn("jobs still running at shutdown", "timeout", jobDrainTimeout.String())
	}
}

// notifySystemd reports state to systemd when running under a Type=notify
// unit. Outside systemd it is a no-op.
func notifySystemd(log *logging.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("systemd notify failed", "state", state, "error", err)
		return
	}
	if sent {
		log.Debug("systemd notified", "state", state)
	}
}
