package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all intentd configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Taxonomy  TaxonomyConfig  `toml:"taxonomy"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type TaxonomyConfig struct {
	// Path to a TOML signal catalog. Empty means the built-in catalog.
	Path string `toml:"path"`
}

type ScoringConfig struct {
	SweepIntervalSeconds int     `toml:"sweep_interval_seconds"`
	ContactCompanyWeight float64 `toml:"contact_company_weight"` // contact signal multiplier at company level
	TrendThreshold       float64 `toml:"trend_threshold"`        // score delta below which trend is "stable"
	ScoreMin             float64 `toml:"score_min"`
	ScoreMax             float64 `toml:"score_max"`
	RecomputeTimeoutMS   int     `toml:"recompute_timeout_ms"`
	StoreRetries         int     `toml:"store_retries"` // bounded retries for transient store errors
	SweepWorkers         int     `toml:"sweep_workers"`
}

type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38800,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Scoring: ScoringConfig{
			SweepIntervalSeconds: 300,
			ContactCompanyWeight: 0.5,
			TrendThreshold:       2.0,
			ScoreMin:             0,
			ScoreMax:             100,
			RecomputeTimeoutMS:   5000,
			StoreRetries:         3,
			SweepWorkers:         4,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Load reads a TOML config file on top of the defaults. A missing file is not
// an error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return cfg, fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides a loaded config from the environment.
// INTENTD_PORT and INTENTD_DB_PATH are the only supported overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("INTENTD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("INTENTD_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

func (c *Config) validate() error {
	if c.Scoring.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("scoring.sweep_interval_seconds must be positive, got %d", c.Scoring.SweepIntervalSeconds)
	}
	if c.Scoring.ContactCompanyWeight < 0 {
		return fmt.Errorf("scoring.contact_company_weight must be >= 0, got %g", c.Scoring.ContactCompanyWeight)
	}
	if c.Scoring.TrendThreshold < 0 {
		return fmt.Errorf("scoring.trend_threshold must be >= 0, got %g", c.Scoring.TrendThreshold)
	}
	if c.Scoring.ScoreMax <= c.Scoring.ScoreMin {
		return fmt.Errorf("scoring.score_max (%g) must exceed scoring.score_min (%g)", c.Scoring.ScoreMax, c.Scoring.ScoreMin)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SweepInterval returns the sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Scoring.SweepIntervalSeconds) * time.Second
}

// RecomputeTimeout returns the per-entity recompute budget.
func (c *Config) RecomputeTimeout() time.Duration {
	return time.Duration(c.Scoring.RecomputeTimeoutMS) * time.Millisecond
}
