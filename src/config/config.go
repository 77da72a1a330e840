// Package config loads service configuration from an optional YAML file and
// ARENA_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// SeedFile optionally names a YAML file of decks and stats loaded at startup.
	SeedFile string `yaml:"seed_file"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type AnalyticsConfig struct {
	SegmentWriteKey string `yaml:"segment_write_key"`
	SegmentURL      string `yaml:"segment_url"`
}

type TelemetryConfig struct {
	// OTLPEndpoint enables tracing export when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTP:    HTTPConfig{Address: ":8080"},
		Storage: StorageConfig{Driver: DriverMemory},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path when it is non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	env := func(key, fallback string) string {
		if value := getenv(key); value != "" {
			return value
		}
		return fallback
	}
	c.HTTP.Address = env("ARENA_HTTP_ADDR", c.HTTP.Address)
	c.Storage.Driver = env("ARENA_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.PostgresDSN = env("ARENA_POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Log.Level = env("ARENA_LOG_LEVEL", c.Log.Level)
	c.Log.Format = env("ARENA_LOG_FORMAT", c.Log.Format)
	c.Log.File = env("ARENA_LOG_FILE", c.Log.File)
	c.Analytics.SegmentWriteKey = env("ARENA_SEGMENT_WRITE_KEY", c.Analytics.SegmentWriteKey)
	c.Analytics.SegmentURL = env("ARENA_SEGMENT_URL", c.Analytics.SegmentURL)
	c.Telemetry.OTLPEndpoint = env("ARENA_OTEL_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.SeedFile = env("ARENA_SEED_FILE", c.SeedFile)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Address) == "" {
		return errors.New("http address is required")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return errors.New("postgres storage requires a dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
