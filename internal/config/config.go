// Package config loads the bridge configuration from a YAML file and applies
// command-line overrides. Missing files fall back to defaults so the bridge
// can run from flags alone.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/obd.bridge/internal/serialio"
)

// Config holds all bridge configuration.
type Config struct {
	// UDPPort is the port the diagnostic client sends requests to.
	UDPPort int `yaml:"udp_port"`

	// SerialPort is the device path of the interpreter link.
	SerialPort string `yaml:"serial_port"`

	// SerialMode holds the connection parameters for the serial link.
	SerialMode serialio.PortOptions `yaml:"serial_mode"`

	// MaxCommandLen bounds a single client command in bytes.
	MaxCommandLen int `yaml:"max_command_len"`

	// MaxReplyLen bounds one buffered interpreter reply in bytes.
	MaxReplyLen int `yaml:"max_reply_len"`

	// ReplyTimeoutMs bounds how long one cycle waits for the ready prompt.
	ReplyTimeoutMs int `yaml:"reply_timeout_ms"`

	// Probe runs the interface identification sequence at startup.
	Probe bool `yaml:"probe"`

	// DBPath is the SQLite transcript database file.
	DBPath string `yaml:"db_path"`

	// MigrationsDir holds the schema migration files for the transcript DB.
	MigrationsDir string `yaml:"migrations_dir"`

	// TraceLogPath is the append-only transcript log file. Empty disables it.
	TraceLogPath string `yaml:"trace_log_path"`

	// AdminListen is the listen address for the admin/debug HTTP server.
	// Empty disables the server.
	AdminListen string `yaml:"admin_listen"`
}

// Default returns the configuration used when no file or flags are given.
func Default() *Config {
	return &Config{
		UDPPort:    8989,
		SerialPort: "/dev/ttyUSB0",
		SerialMode: serialio.PortOptions{
			BaudRate: 9600,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
		},
		MaxCommandLen:  256,
		MaxReplyLen:    4096,
		ReplyTimeoutMs: 5000,
		Probe:          true,
		DBPath:         "obd_bridge.db",
		MigrationsDir:  "migrations",
		TraceLogPath:   "obd_server_log.txt",
		AdminListen:    "",
	}
}

// Load reads the config from a YAML file. A missing file is not an error:
// defaults are returned so flag-only operation works. A malformed file is an
// error, to avoid silently running with the wrong serial parameters.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("no config at %s, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ReplyTimeout returns the reply deadline as a duration.
func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.ReplyTimeoutMs) * time.Millisecond
}

// Validate checks the values that would otherwise fail deep inside a cycle.
func (c *Config) Validate() error {
	if c.UDPPort <= 0 || c.UDPPort > 65535 {
		return fmt.Errorf("invalid udp_port %d", c.UDPPort)
	}
	if c.MaxCommandLen <= 0 {
		return fmt.Errorf("max_command_len must be positive, got %d", c.MaxCommandLen)
	}
	if c.MaxReplyLen <= 0 {
		return fmt.Errorf("max_reply_len must be positive, got %d", c.MaxReplyLen)
	}
	if c.ReplyTimeoutMs <= 0 {
		return fmt.Errorf("reply_timeout_ms must be positive, got %d", c.ReplyTimeoutMs)
	}
	if _, err := c.SerialMode.Normalize(); err != nil {
		return fmt.Errorf("serial_mode: %w", err)
	}
	return nil
}
