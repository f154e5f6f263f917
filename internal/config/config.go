// Package config defines the groundctl daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Dispatch DispatchConfig `json:"dispatch" yaml:"dispatch"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g. "127.0.0.1:7466"
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// DispatchConfig controls the notification delivery sweep.
type DispatchConfig struct {
	Transport  string   `json:"transport" yaml:"transport"` // "log" or "webhook"
	WebhookURL string   `json:"webhook_url,omitempty" yaml:"webhook_url"`
	Interval   Duration `json:"interval" yaml:"interval"`
}

// Duration wraps time.Duration so YAML values like "5s" parse.
type Duration time.Duration

// UnmarshalYAML implements custom unmarshaling for duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:7466",
		},
		Database: DatabaseConfig{
			Path: "./groundctl.db",
		},
		Dispatch: DispatchConfig{
			Transport: "log",
			Interval:  Duration(2 * time.Second),
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Dispatch.Transport {
	case "log":
	case "webhook":
		if c.Dispatch.WebhookURL == "" {
			return fmt.Errorf("webhook transport requires webhook_url")
		}
	default:
		return fmt.Errorf("unknown dispatch transport %q", c.Dispatch.Transport)
	}
	if c.Dispatch.Interval < 0 {
		return fmt.Errorf("dispatch interval must not be negative")
	}
	return nil
}
