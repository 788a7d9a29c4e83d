// Package config resolves process settings from an optional .env file, an
// optional YAML file named by CONFIG_FILE, and the environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type MetricsBackend string

const (
	MetricsAuto     MetricsBackend = "auto"
	MetricsPostgres MetricsBackend = "postgres"
	MetricsRedis    MetricsBackend = "redis"
	MetricsNone     MetricsBackend = "none"
)

type Config struct {
	Port            string         `yaml:"port"`
	DatabaseURL     string         `yaml:"database_url"`
	RedisURL        string         `yaml:"redis_url"`
	NATSURL         string         `yaml:"nats_url"`
	DefaultTimeout  time.Duration  `yaml:"default_timeout"`
	SweepInterval   time.Duration  `yaml:"sweep_interval"`
	SweepGrace      time.Duration  `yaml:"sweep_grace"`
	RecordRetention time.Duration  `yaml:"record_retention"`
	TraceEnabled    bool           `yaml:"trace_enabled"`
	TraceEndpoint   string         `yaml:"trace_endpoint"`
	LogLevel        string         `yaml:"log_level"`
	MetricsBackend  MetricsBackend `yaml:"metrics_backend"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		DefaultTimeout:  30 * time.Second,
		SweepInterval:   30 * time.Second,
		SweepGrace:      30 * time.Second,
		RecordRetention: time.Hour,
		LogLevel:        "info",
		MetricsBackend:  MetricsAuto,
	}
}

// Load builds the config. A missing .env is ignored; a CONFIG_FILE that is set
// but unreadable is an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("NATS_URL", &c.NATSURL)
	str("TRACE_ENDPOINT", &c.TraceEndpoint)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := os.LookupEnv("METRICS_BACKEND"); ok {
		c.MetricsBackend = MetricsBackend(strings.ToLower(v))
	}

	if v, ok := os.LookupEnv("TRACE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse TRACE_ENABLED: %w", err)
		}
		c.TraceEnabled = b
	}

	for key, dst := range map[string]*time.Duration{
		"DEFAULT_TIMEOUT":  &c.DefaultTimeout,
		"SWEEP_INTERVAL":   &c.SweepInterval,
		"SWEEP_GRACE":      &c.SweepGrace,
		"RECORD_RETENTION": &c.RecordRetention,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// parseDuration accepts Go durations ("30s") and bare integer seconds ("30").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func (c Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default timeout must be > 0, got %s", c.DefaultTimeout)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be > 0, got %s", c.SweepInterval)
	}
	if c.SweepGrace < 0 {
		return fmt.Errorf("sweep grace must be >= 0, got %s", c.SweepGrace)
	}
	switch c.MetricsBackend {
	case MetricsAuto, MetricsPostgres, MetricsRedis, MetricsNone:
	default:
		return fmt.Errorf("unknown metrics backend %q", c.MetricsBackend)
	}
	if c.MetricsBackend == MetricsRedis && c.RedisURL == "" {
		return errors.New("metrics backend redis requires REDIS_URL")
	}
	if c.MetricsBackend == MetricsPostgres && c.DatabaseURL == "" {
		return errors.New("metrics backend postgres requires DATABASE_URL")
	}
	return nil
}

// ResolvedMetricsBackend turns auto into a concrete backend: Redis when
// configured, else Postgres when configured, else none.
func (c Config) ResolvedMetricsBackend() MetricsBackend {
	if c.MetricsBackend != MetricsAuto {
		return c.MetricsBackend
	}
	switch {
	case c.RedisURL != "":
		return MetricsRedis
	case c.DatabaseURL != "":
		return MetricsPostgres
	default:
		return MetricsNone
	}
}

func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
