// Package config loads runlens settings from a YAML file, a .env file and RUNLENS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read when no explicit config path is given. It is optional.
const DefaultFile = "runlens.yaml"

// EnvPrefix namespaces environment overrides; "__" separates nested keys
// (RUNLENS_BACKEND__BASE_URL sets backend.base_url).
const EnvPrefix = "RUNLENS_"

type Config struct {
	Backend   BackendConfig   `koanf:"backend"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Server    ServerConfig    `koanf:"server"`
	Drift     DriftConfig     `koanf:"drift"`
	Schema    SchemaConfig    `koanf:"schema"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type BackendConfig struct {
	BaseURL string        `koanf:"base_url"`
	WSURL   string        `koanf:"ws_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type IngestConfig struct {
	FlushDelay time.Duration `koanf:"flush_delay"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type DriftConfig struct {
	Mode string `koanf:"mode"` // remote, local
}

type SchemaConfig struct {
	File string `koanf:"file"` // Optional offline schema (YAML)
}

type ArchiveConfig struct {
	Driver string       `koanf:"driver"` // memory, redis, sqlite
	Redis  RedisConfig  `koanf:"redis"`
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Stdout bool `koanf:"stdout"` // Export spans to stdout
}

type LogConfig struct {
	Debug bool `koanf:"debug"`
}

var defaults = map[string]any{
	"backend.base_url":    "http://localhost:8000",
	"backend.ws_url":      "ws://localhost:8000/ws/run",
	"backend.timeout":     "10s",
	"ingest.flush_delay":  "100ms",
	"server.port":         8080,
	"drift.mode":          "remote",
	"archive.driver":      "memory",
	"archive.redis.addr":  "localhost:6379",
	"archive.sqlite.path": "runlens.db",
}

// Load reads configuration. path may be empty, in which case DefaultFile is
// tried. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs
	_ = godotenv.Load()

	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variables override the file.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, val); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Drift.Mode {
	case "remote", "local":
	default:
		return fmt.Errorf("drift.mode must be remote or local, got %q", c.Drift.Mode)
	}
	switch c.Archive.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("archive.driver must be memory, redis or sqlite, got %q", c.Archive.Driver)
	}
	if c.Ingest.FlushDelay <= 0 {
		return fmt.Errorf("ingest.flush_delay must be positive")
	}
	return nil
}
