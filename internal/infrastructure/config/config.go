package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // audit timestamps must render on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the sensor bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Listener ListenerConfig `yaml:"listener"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Audit    AuditConfig    `yaml:"audit"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ListenerConfig contains the inbound TCP listener settings.
type ListenerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxLineBytes caps a single newline-delimited record.
	// A longer line ends the connection.
	MaxLineBytes int `yaml:"max_line_bytes"`

	// AckWriteTimeout bounds the echo write to a client (seconds).
	AckWriteTimeout int `yaml:"ack_write_timeout"`
}

// UpstreamConfig contains the time-series database write settings.
type UpstreamConfig struct {
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
	Precision string `yaml:"precision"`

	// Timeout is the per-request HTTP timeout (seconds).
	Timeout int `yaml:"timeout"`

	// VerifyOnStart pings the upstream at startup and logs the result.
	VerifyOnStart bool `yaml:"verify_on_start"`
}

// AuditConfig contains settings for the audit channel sinks.
type AuditConfig struct {
	// Timezone is the IANA zone used to render audit timestamps.
	Timezone string              `yaml:"timezone"`
	File     AuditFileConfig     `yaml:"file"`
	Database AuditDatabaseConfig `yaml:"database"`
}

// AuditFileConfig contains the append-only audit file settings.
type AuditFileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditDatabaseConfig contains SQLite audit store settings.
type AuditDatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the live mirror.
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the operations HTTP server settings.
type APIConfig struct {
	Enabled   bool             `yaml:"enabled"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket live-feed settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SENSORBRIDGE_SECTION_KEY
// For example: SENSORBRIDGE_UPSTREAM_URL, SENSORBRIDGE_LISTENER_PORT.
// INFLUX_TOKEN is honoured as a fallback for the upstream credential.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the values the bridge has always run with.
func defaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			Host:            "0.0.0.0",
			Port:            9000,
			MaxLineBytes:    64 * 1024,
			AckWriteTimeout: 5,
		},
		Upstream: UpstreamConfig{
			URL:           "http://localhost:8086",
			Org:           "ITS",
			Bucket:        "KOPI",
			Precision:     "ns",
			Timeout:       10,
			VerifyOnStart: true,
		},
		Audit: AuditConfig{
			Timezone: "Asia/Jakarta",
			File: AuditFileConfig{
				Enabled: true,
				Path:    "server.log",
			},
			Database: AuditDatabaseConfig{
				Path:        "./data/audit.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "sensorbridge",
			},
			QoS:         1,
			TopicPrefix: "sensorbridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9100,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				MaxMessageSize: 4096,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SENSORBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Listener
	if v := os.Getenv("SENSORBRIDGE_LISTENER_HOST"); v != "" {
		cfg.Listener.Host = v
	}
	if v := os.Getenv("SENSORBRIDGE_LISTENER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SENSORBRIDGE_LISTENER_PORT: %w", err)
		}
		cfg.Listener.Port = port
	}

	// Upstream. The bare INFLUX_TOKEN is honoured when the namespaced one is absent.
	if v := os.Getenv("SENSORBRIDGE_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}
	if v := os.Getenv("SENSORBRIDGE_UPSTREAM_TOKEN"); v != "" {
		cfg.Upstream.Token = v
	} else if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		cfg.Upstream.Token = v
	}
	if v := os.Getenv("SENSORBRIDGE_UPSTREAM_ORG"); v != "" {
		cfg.Upstream.Org = v
	}
	if v := os.Getenv("SENSORBRIDGE_UPSTREAM_BUCKET"); v != "" {
		cfg.Upstream.Bucket = v
	}

	// Audit
	if v := os.Getenv("SENSORBRIDGE_AUDIT_FILE_PATH"); v != "" {
		cfg.Audit.File.Path = v
	}
	if v := os.Getenv("SENSORBRIDGE_AUDIT_DATABASE_PATH"); v != "" {
		cfg.Audit.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SENSORBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SENSORBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SENSORBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SENSORBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	return nil
}

// ErrMissingToken is returned when no upstream credential is configured.
var ErrMissingToken = errors.New("upstream.token is required (set SENSORBRIDGE_UPSTREAM_TOKEN or INFLUX_TOKEN)")

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Listener validation
	if c.Listener.Port < 1 || c.Listener.Port > 65535 {
		errs = append(errs, "listener.port must be between 1 and 65535")
	}
	if c.Listener.MaxLineBytes <= 0 {
		errs = append(errs, "listener.max_line_bytes must be positive")
	}

	// Upstream validation - the credential is REQUIRED. Running without it
	// would turn every forward into a 401 and silently drop all telemetry.
	if c.Upstream.Token == "" {
		errs = append(errs, ErrMissingToken.Error())
	}
	if u, err := url.Parse(c.Upstream.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "upstream.url must be an absolute http(s) URL")
	}
	if c.Upstream.Org == "" {
		errs = append(errs, "upstream.org is required")
	}
	if c.Upstream.Bucket == "" {
		errs = append(errs, "upstream.bucket is required")
	}
	switch c.Upstream.Precision {
	case "ns", "us", "ms", "s":
	default:
		errs = append(errs, "upstream.precision must be one of ns, us, ms, s")
	}

	// Audit validation
	if _, err := time.LoadLocation(c.Audit.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("audit.timezone %q is not a known zone", c.Audit.Timezone))
	}
	if c.Audit.File.Enabled && c.Audit.File.Path == "" {
		errs = append(errs, "audit.file.path is required when the audit file is enabled")
	}
	if c.Audit.Database.Enabled && c.Audit.Database.Path == "" {
		errs = append(errs, "audit.database.path is required when the audit database is enabled")
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required")
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenAddress returns the host:port the TCP listener binds.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Listener.Host, c.Listener.Port)
}

// GetAckWriteTimeout returns the client echo write timeout as a Duration.
func (c *Config) GetAckWriteTimeout() time.Duration {
	return time.Duration(c.Listener.AckWriteTimeout) * time.Second
}

// GetUpstreamTimeout returns the upstream request timeout as a Duration.
func (c *Config) GetUpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.Timeout) * time.Second
}

// AuditLocation returns the zone audit timestamps are rendered in.
// Falls back to UTC when the zone cannot be loaded.
func (c *Config) AuditLocation() *time.Location {
	loc, err := time.LoadLocation(c.Audit.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
