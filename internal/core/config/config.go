package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sensorwatch-lab/sensorwatch/internal/anomaly"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
	"github.com/sensorwatch-lab/sensorwatch/internal/insight"
	"github.com/sensorwatch-lab/sensorwatch/internal/liveness"
)

// DefaultPath is the config file looked up when -config is not given.
// It is optional; any other path must exist.
const DefaultPath = "sensorwatch.yaml"

const envPrefix = "SENSORWATCH_"

// Config represents the top-level application config.
type Config struct {
	Server    ServerConfig        `koanf:"server" yaml:"server"`
	Database  DatabaseConfig      `koanf:"database" yaml:"database"`
	Logging   LoggingConfig       `koanf:"logging" yaml:"logging"`
	MQTT      MQTTConfig          `koanf:"mqtt" yaml:"mqtt"`
	Window    WindowConfig        `koanf:"window" yaml:"window"`
	Scoring   ScoringConfig       `koanf:"scoring" yaml:"scoring"`
	Liveness  liveness.Thresholds `koanf:"liveness" yaml:"liveness"`
	Insight   insight.Rules       `koanf:"insight" yaml:"insight"`
	Monitor   MonitorConfig       `koanf:"monitor" yaml:"monitor"`
	Assistant AssistantConfig     `koanf:"assistant" yaml:"assistant"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" yaml:"port"`
	Host            string        `koanf:"host" yaml:"host"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" yaml:"max_body_bytes"`
	Mode            string        `koanf:"mode" yaml:"mode"` // debug | release
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Type         string `koanf:"type" yaml:"type"` // sqlite | postgres
	DSN          string `koanf:"dsn" yaml:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns" yaml:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // debug | info | warn | error
	Format string `koanf:"format" yaml:"format"` // json | console
}

type MQTTConfig struct {
	Enabled        bool          `koanf:"enabled" yaml:"enabled"`
	Broker         string        `koanf:"broker" yaml:"broker"`
	Topic          string        `koanf:"topic" yaml:"topic"`
	ClientID       string        `koanf:"client_id" yaml:"client_id"`
	Username       string        `koanf:"username" yaml:"username"`
	Password       string        `koanf:"password" yaml:"password"`
	QoS            byte          `koanf:"qos" yaml:"qos"`
	Encoding       string        `koanf:"encoding" yaml:"encoding"` // json | protobuf
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	QueueSize      int           `koanf:"queue_size" yaml:"queue_size"`
}

type WindowConfig struct {
	Span            time.Duration `koanf:"span" yaml:"span"`
	MaxDistance     int           `koanf:"max_distance" yaml:"max_distance"`
	FarDistance     int           `koanf:"far_distance" yaml:"far_distance"`
	FallbackEnabled bool          `koanf:"fallback_enabled" yaml:"fallback_enabled"`
	FallbackCount   int           `koanf:"fallback_count" yaml:"fallback_count"`
	LatestLimit     int           `koanf:"latest_limit" yaml:"latest_limit"`
	MaxLimit        int           `koanf:"max_limit" yaml:"max_limit"`
	RecentCount     int           `koanf:"recent_count" yaml:"recent_count"`
}

// ScoringConfig holds default thresholds and optional per-metric overrides.
// Unset override fields inherit from Defaults.
type ScoringConfig struct {
	Defaults anomaly.Thresholds            `koanf:"defaults" yaml:"defaults"`
	Metrics  map[string]anomaly.Thresholds `koanf:"metrics" yaml:"metrics,omitempty"`
}

type MonitorConfig struct {
	Enabled  bool          `koanf:"enabled" yaml:"enabled"`
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

type AssistantConfig struct {
	Enabled         bool          `koanf:"enabled" yaml:"enabled"`
	BaseURL         string        `koanf:"base_url" yaml:"base_url"`
	Model           string        `koanf:"model" yaml:"model"`
	Timeout         time.Duration `koanf:"timeout" yaml:"timeout"`
	ContextReadings int           `koanf:"context_readings" yaml:"context_readings"`
}

// Overrides resolves per-metric thresholds, filling unset fields from Defaults.
func (c ScoringConfig) Overrides() (map[v1.Metric]anomaly.Thresholds, error) {
	out := make(map[v1.Metric]anomaly.Thresholds, len(c.Metrics))
	for name, t := range c.Metrics {
		m, err := v1.ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("scoring.metrics: %w", err)
		}
		if t.MinSamples == 0 {
			t.MinSamples = c.Defaults.MinSamples
		}
		if t.StdFloor == 0 {
			t.StdFloor = c.Defaults.StdFloor
		}
		if t.Low == 0 {
			t.Low = c.Defaults.Low
		}
		if t.High == 0 {
			t.High = c.Defaults.High
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("scoring.metrics.%s: %w", name, err)
		}
		out[m] = t
	}
	return out, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.type %q (must be sqlite or postgres)", c.Database.Type)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging.format %q (must be json or console)", c.Logging.Format)
	}

	if c.MQTT.Enabled {
		if strings.TrimSpace(c.MQTT.Broker) == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if strings.TrimSpace(c.MQTT.Topic) == "" {
			return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
		}
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos %d (must be 0, 1 or 2)", c.MQTT.QoS)
	}
	if c.MQTT.Encoding != "json" && c.MQTT.Encoding != "protobuf" {
		return fmt.Errorf("invalid mqtt.encoding %q (must be json or protobuf)", c.MQTT.Encoding)
	}
	if c.MQTT.ConnectTimeout <= 0 {
		return fmt.Errorf("mqtt.connect_timeout must be > 0")
	}
	if c.MQTT.QueueSize <= 0 {
		return fmt.Errorf("mqtt.queue_size must be > 0")
	}

	if c.Window.Span <= 0 {
		return fmt.Errorf("window.span must be > 0")
	}
	if c.Window.MaxDistance < 0 {
		return fmt.Errorf("window.max_distance must be >= 0")
	}
	if c.Window.FarDistance <= 0 {
		return fmt.Errorf("window.far_distance must be > 0")
	}
	if c.Window.FallbackCount < 0 {
		return fmt.Errorf("window.fallback_count must be >= 0")
	}
	if c.Window.MaxLimit <= 0 || c.Window.LatestLimit <= 0 || c.Window.LatestLimit > c.Window.MaxLimit {
		return fmt.Errorf("window limits must satisfy 0 < latest_limit <= max_limit, got %d/%d", c.Window.LatestLimit, c.Window.MaxLimit)
	}
	if c.Window.RecentCount <= 0 {
		return fmt.Errorf("window.recent_count must be > 0")
	}

	if err := c.Scoring.Defaults.Validate(); err != nil {
		return fmt.Errorf("scoring.defaults: %w", err)
	}
	if _, err := c.Scoring.Overrides(); err != nil {
		return err
	}
	if err := c.Liveness.Validate(); err != nil {
		return fmt.Errorf("liveness: %w", err)
	}
	if err := c.Insight.Validate(); err != nil {
		return fmt.Errorf("insight: %w", err)
	}

	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0")
	}

	if c.Assistant.Enabled {
		if _, err := url.ParseRequestURI(c.Assistant.BaseURL); err != nil {
			return fmt.Errorf("invalid assistant.base_url %q: %w", c.Assistant.BaseURL, err)
		}
		if strings.TrimSpace(c.Assistant.Model) == "" {
			return fmt.Errorf("assistant.model is required when the assistant is enabled")
		}
		if c.Assistant.Timeout <= 0 {
			return fmt.Errorf("assistant.timeout must be > 0")
		}
	}

	return nil
}

// Redacted returns a copy safe to print: secrets masked.
func (c Config) Redacted() Config {
	if c.MQTT.Password != "" {
		c.MQTT.Password = "****"
	}
	if u, err := url.Parse(c.Database.DSN); err == nil && u.User != nil {
		c.Database.DSN = u.Redacted()
	}
	return c
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_bytes":   64 * 1024,
		"server.mode":             "release",
		"server.shutdown_timeout": "10s",

		"database.type":           "sqlite",
		"database.dsn":            "sensorwatch.db",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,

		"logging.level":  "info",
		"logging.format": "json",

		"mqtt.enabled":         true,
		"mqtt.broker":          "tcp://localhost:1883",
		"mqtt.topic":           "iot/sensors/room1",
		"mqtt.client_id":       "sensorwatch",
		"mqtt.qos":             0,
		"mqtt.encoding":        "json",
		"mqtt.connect_timeout": "10s",
		"mqtt.queue_size":      256,

		"window.span":             "60s",
		"window.max_distance":     400,
		"window.far_distance":     100,
		"window.fallback_enabled": true,
		"window.fallback_count":   5,
		"window.latest_limit":     100,
		"window.max_limit":        500,
		"window.recent_count":     10,

		"scoring.defaults.min_samples": 15,
		"scoring.defaults.std_floor":   0.5,
		"scoring.defaults.low":         1.5,
		"scoring.defaults.high":        2.5,

		"liveness.online":  "5s",
		"liveness.offline": "15s",

		"insight.temperature_high":    32.0,
		"insight.temperature_low":     18.0,
		"insight.humidity_high":       70.0,
		"insight.humidity_low":        30.0,
		"insight.distance_very_close": 30,
		"insight.distance_nearby":     50,

		"monitor.enabled":  true,
		"monitor.interval": "2s",

		"assistant.enabled":          true,
		"assistant.base_url":         "http://localhost:11434",
		"assistant.model":            "gemma3:1b",
		"assistant.timeout":          "20s",
		"assistant.context_readings": 10,
	}
}

// Load parses config from defaults, the YAML file and env, then validates it.
// Env keys use the SENSORWATCH_ prefix with "__" between sections,
// e.g. SENSORWATCH_MQTT__BROKER.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !(configPath == DefaultPath && errors.Is(err, os.ErrNotExist)) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
