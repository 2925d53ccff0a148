// Sensor Bridge - TCP ingestion gateway for SHT20 sensor readings
//
// Sensors connect over TCP and send one JSON reading per line. Each valid
// reading is written to an InfluxDB v2 bucket as line protocol and echoed
// back to the sensor. Every connection and reading is audited.
//
// Configuration is read from SENSORBRIDGE_CONFIG (default configs/config.yaml)
// with SENSORBRIDGE_* environment overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/nerrad567/sensorbridge/migrations"

	"github.com/nerrad567/sensorbridge/internal/api"
	"github.com/nerrad567/sensorbridge/internal/audit"
	"github.com/nerrad567/sensorbridge/internal/forwarder"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/config"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/database"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/logging"
	"github.com/nerrad567/sensorbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/sensorbridge/internal/ingest"
	"github.com/nerrad567/sensorbridge/internal/metrics"
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

// startupProbeTimeout bounds the upstream ping at startup.
const startupProbeTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
// Deferred closes run in reverse start order.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting sensor bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath == "" {
		log.Info("no config file found, using defaults and environment")
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Audit sinks
	recorders := audit.Multi{audit.NewLogRecorder(log.Component("audit").Logger)}

	if cfg.Audit.File.Enabled {
		fileRec, openErr := audit.OpenFile(cfg.Audit.File.Path, cfg.AuditLocation())
		if openErr != nil {
			return fmt.Errorf("opening audit file: %w", openErr)
		}
		defer func() {
			if closeErr := fileRec.Close(); closeErr != nil {
				log.Error("error closing audit file", "error", closeErr)
			}
		}()
		recorders = append(recorders, fileRec)
		log.Info("audit file opened", "path", cfg.Audit.File.Path, "timezone", cfg.Audit.Timezone)
	}

	var (
		auditDB   *database.DB
		auditRepo *audit.SQLiteRepository
	)
	if cfg.Audit.Database.Enabled {
		auditDB, err = openAuditDB(ctx, cfg.Audit.Database)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("closing audit database")
			if closeErr := auditDB.Close(); closeErr != nil {
				log.Error("error closing audit database", "error", closeErr)
			}
		}()
		auditRepo = audit.NewSQLiteRepository(auditDB.DB)
		recorders = append(recorders, auditRepo)
		log.Info("audit database ready", "path", cfg.Audit.Database.Path)
	}

	// Upstream
	fwd, err := forwarder.New(forwarder.Config{
		URL:       cfg.Upstream.URL,
		Token:     cfg.Upstream.Token,
		Org:       cfg.Upstream.Org,
		Bucket:    cfg.Upstream.Bucket,
		Precision: cfg.Upstream.Precision,
		Timeout:   cfg.GetUpstreamTimeout(),
	})
	if err != nil {
		return fmt.Errorf("creating forwarder: %w", err)
	}
	log.Info("upstream configured", "write_url", fwd.WriteURL())

	influxClient := influxdb.New(cfg.Upstream, fwd.HTTPClient())
	defer influxClient.Close()

	if cfg.Upstream.VerifyOnStart {
		probeUpstream(ctx, influxClient, log)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var publishers []ingest.Publisher

	// MQTT mirror (optional)
	var mqttClient *mqtt.Client
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		publishers = append(publishers, ingest.NewMQTTPublisher(mqttClient, mqttClient.Topics().Reading, mqttClient.QoS()))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic_prefix", mqttClient.Topics().Prefix,
		)
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Ops API (optional). The hub exists before the ingest server so it
	// can be registered as a publisher.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.API.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
		publishers = append(publishers, hub)
	}

	ingestSrv := ingest.New(ingest.Config{
		Address:         cfg.ListenAddress(),
		MaxLineBytes:    cfg.Listener.MaxLineBytes,
		AckWriteTimeout: cfg.GetAckWriteTimeout(),
	}, fwd, recorders,
		ingest.WithLogger(log),
		ingest.WithMetrics(m),
		ingest.WithPublishers(publishers...),
	)

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:      cfg.API,
			Logger:      log.Component("api"),
			Upstream:    influxClient,
			Readings:    influxClient,
			Gatherer:    registry,
			Connections: ingestSrv,
			ExternalHub: hub,
			Version:     version,
		}
		// Leave interfaces nil rather than holding typed nil pointers.
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if auditDB != nil {
			deps.AuditDB = auditDB
			deps.AuditRepo = auditRepo
		}

		apiSrv, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiSrv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiSrv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("ops API disabled")
	}

	log.Info("initialisation complete", "listen", cfg.ListenAddress())

	if err := ingestSrv.Serve(ctx); err != nil {
		return fmt.Errorf("ingest server: %w", err)
	}

	log.Info("sensor bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SENSORBRIDGE_CONFIG if set. Otherwise the default path is used when
// it exists, and "" (defaults plus environment) when it does not.
func getConfigPath() string {
	if path := os.Getenv("SENSORBRIDGE_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return defaultConfigPath
}

// openAuditDB opens the audit database and applies pending migrations.
func openAuditDB(ctx context.Context, cfg config.AuditDatabaseConfig) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running audit migrations: %w", err)
	}
	return db, nil
}

// probeUpstream pings the upstream once. Failure is logged, not fatal:
// readings are still echoed and retried by sensors while it is down.
func probeUpstream(ctx context.Context, client *influxdb.Client, log *logging.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, startupProbeTimeout)
	defer cancel()

	if err := client.Ping(probeCtx); err != nil {
		log.Warn("upstream not reachable at startup", "error", err)
		return
	}
	log.Info("upstream reachable")
}
