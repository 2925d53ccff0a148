package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load consults so host settings can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SENSORBRIDGE_LISTENER_HOST",
		"SENSORBRIDGE_LISTENER_PORT",
		"SENSORBRIDGE_UPSTREAM_URL",
		"SENSORBRIDGE_UPSTREAM_TOKEN",
		"SENSORBRIDGE_UPSTREAM_ORG",
		"SENSORBRIDGE_UPSTREAM_BUCKET",
		"SENSORBRIDGE_AUDIT_FILE_PATH",
		"SENSORBRIDGE_AUDIT_DATABASE_PATH",
		"SENSORBRIDGE_MQTT_HOST",
		"SENSORBRIDGE_MQTT_USERNAME",
		"SENSORBRIDGE_MQTT_PASSWORD",
		"SENSORBRIDGE_API_HOST",
		"INFLUX_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
listener:
  host: "127.0.0.1"
  port: 9500
upstream:
  url: "http://influx.local:8086"
  token: "file-token"
  org: "lab"
  bucket: "coffee"
audit:
  file:
    path: "/var/log/bridge.log"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.ListenAddress(); got != "127.0.0.1:9500" {
		t.Errorf("ListenAddress() = %q, want %q", got, "127.0.0.1:9500")
	}
	if cfg.Upstream.Org != "lab" {
		t.Errorf("Upstream.Org = %q, want %q", cfg.Upstream.Org, "lab")
	}
	if cfg.Upstream.Precision != "ns" {
		t.Errorf("Upstream.Precision = %q, want default %q", cfg.Upstream.Precision, "ns")
	}
	if cfg.Audit.File.Path != "/var/log/bridge.log" {
		t.Errorf("Audit.File.Path = %q", cfg.Audit.File.Path)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFLUX_TOKEN", "legacy-token")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if got := cfg.ListenAddress(); got != "0.0.0.0:9000" {
		t.Errorf("ListenAddress() = %q, want %q", got, "0.0.0.0:9000")
	}
	if cfg.Upstream.Token != "legacy-token" {
		t.Errorf("Upstream.Token = %q, want INFLUX_TOKEN value", cfg.Upstream.Token)
	}
	if cfg.Upstream.Org != "ITS" || cfg.Upstream.Bucket != "KOPI" {
		t.Errorf("Upstream org/bucket = %q/%q, want ITS/KOPI", cfg.Upstream.Org, cfg.Upstream.Bucket)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() expected error without a token, got nil")
	}
	if !strings.Contains(err.Error(), "upstream.token is required") {
		t.Errorf("Load() error = %v, want token requirement", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, "invalid: [yaml: content")
	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFLUX_TOKEN", "legacy-token")
	t.Setenv("SENSORBRIDGE_UPSTREAM_TOKEN", "namespaced-token")
	t.Setenv("SENSORBRIDGE_UPSTREAM_URL", "https://tsdb.example:8086")
	t.Setenv("SENSORBRIDGE_LISTENER_PORT", "9901")
	t.Setenv("SENSORBRIDGE_MQTT_HOST", "broker.local")

	path := writeConfig(t, `
upstream:
  token: "file-token"
  url: "http://localhost:8086"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Upstream.Token != "namespaced-token" {
		t.Errorf("Upstream.Token = %q, want namespaced env value", cfg.Upstream.Token)
	}
	if cfg.Upstream.URL != "https://tsdb.example:8086" {
		t.Errorf("Upstream.URL = %q", cfg.Upstream.URL)
	}
	if cfg.Listener.Port != 9901 {
		t.Errorf("Listener.Port = %d, want 9901", cfg.Listener.Port)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q", cfg.MQTT.Broker.Host)
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFLUX_TOKEN", "token")
	t.Setenv("SENSORBRIDGE_LISTENER_PORT", "ninety")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric port, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Upstream.Token = "token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Listener.Port = 0 },
			wantErr: "listener.port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Listener.Port = 70000 },
			wantErr: "listener.port",
		},
		{
			name:    "no token",
			mutate:  func(c *Config) { c.Upstream.Token = "" },
			wantErr: "upstream.token",
		},
		{
			name:    "relative url",
			mutate:  func(c *Config) { c.Upstream.URL = "localhost:8086/api" },
			wantErr: "upstream.url",
		},
		{
			name:    "bad precision",
			mutate:  func(c *Config) { c.Upstream.Precision = "m" },
			wantErr: "upstream.precision",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Audit.Timezone = "Mars/Olympus" },
			wantErr: "audit.timezone",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Audit.Database.Enabled = true
				c.Audit.Database.Path = ""
			},
			wantErr: "audit.database.path",
		},
		{
			name: "mqtt qos out of range",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name: "mqtt qos ignored when disabled",
			mutate: func(c *Config) {
				c.MQTT.Enabled = false
				c.MQTT.QoS = 3
			},
		},
		{
			name: "api port ignored when disabled",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.GetAckWriteTimeout(); got != 5*time.Second {
		t.Errorf("GetAckWriteTimeout() = %v, want 5s", got)
	}
	if got := cfg.GetUpstreamTimeout(); got != 10*time.Second {
		t.Errorf("GetUpstreamTimeout() = %v, want 10s", got)
	}
}

func TestConfig_AuditLocation(t *testing.T) {
	cfg := defaultConfig()

	loc := cfg.AuditLocation()
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 7*3600 {
		t.Errorf("AuditLocation() offset = %d, want %d", offset, 7*3600)
	}

	cfg.Audit.Timezone = "Not/AZone"
	if got := cfg.AuditLocation(); got != time.UTC {
		t.Errorf("AuditLocation() = %v, want UTC fallback", got)
	}
}
