// SentryFleet manager daemon.
//
// Listens for line-delimited JSON commands over TCP and drives a fleet of
// simulated security systems: home alarm panels, biometric locks and car
// alarms. Every state change is appended to a CSV audit log; optional
// sinks mirror events to MQTT, record them to SQLite and push fleet
// gauges to InfluxDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/avolkov/sentryfleet/migrations"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/history"
	"github.com/avolkov/sentryfleet/internal/infrastructure/config"
	"github.com/avolkov/sentryfleet/internal/infrastructure/database"
	"github.com/avolkov/sentryfleet/internal/infrastructure/influxdb"
	"github.com/avolkov/sentryfleet/internal/infrastructure/logging"
	"github.com/avolkov/sentryfleet/internal/infrastructure/mqtt"
	"github.com/avolkov/sentryfleet/internal/registry"
	"github.com/avolkov/sentryfleet/internal/server"
	"github.com/avolkov/sentryfleet/internal/statelog"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	configPath := flag.String("config", getConfigPath(), "path to config.yaml")
	flag.Parse()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SentryFleet manager",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", *configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the CSV audit log; every registry mutation lands here.
	auditLog, err := audit.Open(cfg.Audit.File)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer func() {
		if closeErr := auditLog.Close(); closeErr != nil {
			log.Error("error closing audit log", "error", closeErr)
		}
	}()
	auditLog.SetLogger(log)
	if cfg.Audit.StateInterval > 0 {
		auditLog.SetLogInterval(cfg.Audit.StateInterval)
	}
	log.Info("audit log opened", "path", cfg.Audit.File)

	ctrl := registry.NewController(auditLog, nil)
	ctrl.SetLogger(log)

	// Event history store (optional)
	var histStore *history.Store
	if cfg.History.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening history database: %w", dbErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running history migrations: %w", migrateErr)
		}

		histStore = history.NewStore(db)
		ctrl.SetRecorder(histStore)
		log.Info("event history enabled", "path", cfg.History.Path)

		if cfg.History.Retention > 0 {
			retention := time.Duration(cfg.History.Retention) * 24 * time.Hour
			deleted, pruneErr := histStore.Prune(ctx, retention)
			if pruneErr != nil {
				log.Warn("pruning event history failed", "error", pruneErr)
			} else if deleted > 0 {
				log.Info("pruned event history", "deleted", deleted, "retention_days", cfg.History.Retention)
			}
		}
	} else {
		log.Info("event history disabled")
	}

	// MQTT event mirror (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mirror := mqtt.NewEventMirror(mqttClient, byte(cfg.MQTT.QoS))
		mirror.SetLogger(log)
		ctrl.SetMirror(mirror)
		log.Info("MQTT event mirror connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT event mirror disabled")
	}

	// InfluxDB fleet gauges (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Load the persisted fleet before accepting connections.
	if cfg.Data.AutoLoad && cfg.Data.File != "" {
		if _, statErr := os.Stat(cfg.Data.File); statErr == nil {
			loaded, loadErr := ctrl.LoadFromFile(cfg.Data.File, false)
			if loadErr != nil {
				log.Warn("loading device file failed", "path", cfg.Data.File, "error", loadErr)
			} else {
				log.Info("device file loaded", "path", cfg.Data.File, "systems", loaded)
			}
		} else {
			ctrl.SetFileName(cfg.Data.File)
			log.Info("device file not present, starting empty", "path", cfg.Data.File)
		}
	}

	// Periodic state snapshots
	runner := statelog.New(ctrl, auditLog)
	runner.SetLogger(log)
	if influxClient != nil {
		runner.SetGauges(influxClient)
	}
	go func() {
		if runErr := runner.Run(ctx); runErr != nil && ctx.Err() == nil {
			log.Error("state logger stopped", "error", runErr)
		}
	}()

	dispatcher := server.NewDispatcher(ctrl, auditLog)
	dispatcher.SetLogger(log)
	if histStore != nil {
		dispatcher.SetHistory(histStore)
	}

	srv := server.New(cfg.Server.Addr(), dispatcher, auditLog)
	srv.SetLogger(log)

	auditLog.LogSystemEvent(audit.EventServerStarted, "Адрес: "+cfg.Server.Addr())
	log.Info("listening", "addr", cfg.Server.Addr())

	err = srv.Run(ctx)

	auditLog.LogSystemEvent(audit.EventServerStopped, "")
	log.Info("SentryFleet manager stopped")
	return err
}

// getConfigPath returns the configuration file path.
// Uses SENTRYFLEET_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SENTRYFLEET_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
