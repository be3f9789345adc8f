package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Device          DeviceConfig      `yaml:"device"`
	Blink           BlinkConfig       `yaml:"blink"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Webhook         WebhookConfig     `yaml:"webhook"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	Database        DatabaseConfig    `yaml:"database"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Log             LogConfig         `yaml:"log"`
	Script          string            `yaml:"script"`           // Optional Lua mapping-override script
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// DeviceConfig describes the remote GPIO board and its REST credentials.
type DeviceConfig struct {
	Host         string     `yaml:"host"`
	Port         int        `yaml:"port"`
	Username     string     `yaml:"username"`
	Password     string     `yaml:"password"`
	Timeout      Duration   `yaml:"timeout"`        // HTTP timeout per device request
	RateLimitRPS float64    `yaml:"rate_limit_rps"` // Request rate limit against the board
	Pins         PinsConfig `yaml:"pins"`
}

// PinsConfig assigns a GPIO pin to each light.
type PinsConfig struct {
	Available int `yaml:"available"`
	Away      int `yaml:"away"`
	Busy      int `yaml:"busy"`
}

// BlinkConfig contains blink scheduler settings.
type BlinkConfig struct {
	Interval Duration `yaml:"interval"` // On-pulse length; full period is 2x this
}

// MQTTConfig contains the MQTT presence source settings.
type MQTTConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	StatusTopic    string   `yaml:"status_topic"`
	PowerTopic     string   `yaml:"power_topic"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

// WebhookConfig contains webhook ingest server settings.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains command ledger settings.
type LedgerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionPeriod Duration `yaml:"retention_period"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 32)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 2
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 32
	}
	return c.QueueSize
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	if cfg.Device.Host == "" {
		return nil, fmt.Errorf("device.host is required")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}

	// Device defaults
	if cfg.Device.Port == 0 {
		cfg.Device.Port = 8000
	}
	if cfg.Device.Timeout == 0 {
		cfg.Device.Timeout = Duration(5 * time.Second)
	}
	if cfg.Device.RateLimitRPS == 0 {
		cfg.Device.RateLimitRPS = 10.0
	}
	if cfg.Device.Pins.Available == 0 {
		cfg.Device.Pins.Available = 18
	}
	if cfg.Device.Pins.Away == 0 {
		cfg.Device.Pins.Away = 17
	}
	if cfg.Device.Pins.Busy == 0 {
		cfg.Device.Pins.Busy = 27
	}

	// Blink defaults
	if cfg.Blink.Interval == 0 {
		cfg.Blink.Interval = Duration(500 * time.Millisecond)
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "presenced"
	}
	if cfg.MQTT.StatusTopic == "" {
		cfg.MQTT.StatusTopic = "presence/status"
	}
	if cfg.MQTT.PowerTopic == "" {
		cfg.MQTT.PowerTopic = "presence/power"
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}

	// Webhook defaults
	if cfg.Webhook.Host == "" {
		cfg.Webhook.Host = "0.0.0.0"
	}
	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 8088
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// Database / ledger defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./presenced.sqlite"
	}
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionPeriod == 0 {
		cfg.Ledger.RetentionPeriod = Duration(30 * 24 * time.Hour)
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
