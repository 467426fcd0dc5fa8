// Package config loads and validates the YAML runtime configuration.
// Monitored endpoints are not configured here; they live in the database
// and are managed through the API.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds SQLite settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig holds the check loop settings.
type SchedulerConfig struct {
	Tick         Duration `yaml:"tick"`
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// LoggingConfig holds log file settings. An empty dir logs to stderr.
type LoggingConfig struct {
	Dir string `yaml:"dir"`
}

// WebhookConfig holds webhook alert sink settings.
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// SMTPConfig holds email alert sink settings. The per-endpoint
// notification target is the recipient address.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// AlertsConfig holds all alert sink configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
	SMTP    SMTPConfig    `yaml:"smtp"`
}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// Load reads, parses, and validates the config file at path, applying
// defaults for everything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Scheduler.Tick.Duration < time.Second {
		return nil, fmt.Errorf("scheduler tick %s is below 1s", cfg.Scheduler.Tick.Duration)
	}
	if cfg.Scheduler.ProbeTimeout.Duration <= 0 {
		return nil, fmt.Errorf("probe_timeout must be positive")
	}
	if cfg.Alerts.SMTP.Host != "" && cfg.Alerts.SMTP.From == "" {
		return nil, fmt.Errorf("alerts.smtp.from is required when alerts.smtp.host is set")
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "apimon.db"
	}
	if cfg.Scheduler.Tick.Duration == 0 {
		cfg.Scheduler.Tick = Duration{30 * time.Second}
	}
	if cfg.Scheduler.ProbeTimeout.Duration == 0 {
		cfg.Scheduler.ProbeTimeout = Duration{10 * time.Second}
	}
	if cfg.Alerts.SMTP.Host != "" && cfg.Alerts.SMTP.Port == 0 {
		cfg.Alerts.SMTP.Port = 465
	}
}
