// Package config loads the service configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/msomdec/engagement/internal/clock"
)

// Config holds everything main needs to boot the service.
type Config struct {
	Port              string          `yaml:"port"`
	DatabasePath      string          `yaml:"database_path"`
	JWTSecret         string          `yaml:"jwt_secret"`
	StaleAfterMinutes int             `yaml:"stale_after_minutes"`
	DefaultTimezone   string          `yaml:"default_timezone"`
	LogLevel          string          `yaml:"log_level"` // debug, info, warn, error
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig sizes the per-user token bucket on session endpoints.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     float64 `yaml:"burst"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:              "8080",
		DatabasePath:      "engagement.db",
		StaleAfterMinutes: 180,
		DefaultTimezone:   "UTC",
		LogLevel:          "info",

		RateLimit: RateLimitConfig{
			PerSecond: 1,
			Burst:     10,
		},
	}
}

// Load reads the YAML file at path, if any, then applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("DEFAULT_TIMEZONE"); v != "" {
		c.DefaultTimezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("STALE_AFTER_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STALE_AFTER_MINUTES: %w", err)
		}
		c.StaleAfterMinutes = n
	}
	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %w", err)
		}
		c.RateLimit.PerSecond = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimit.Burst = f
	}
	return nil
}

// Validate reports the first setting that would stop the service from
// running safely.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	if c.StaleAfterMinutes <= 0 {
		return fmt.Errorf("stale_after_minutes must be positive, got %d", c.StaleAfterMinutes)
	}
	if _, err := clock.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("default_timezone: %w", err)
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit must be positive, got %v/s burst %v", c.RateLimit.PerSecond, c.RateLimit.Burst)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// StaleAfter returns the reconciliation threshold.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
