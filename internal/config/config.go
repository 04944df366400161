// Package config holds the runtime configuration for the scraper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/FranksOps/serpent/internal/antibot"
)

// Config holds scraper configuration.
type Config struct {
	// Workers is the size of the batch worker pool.
	Workers int
	// MinInterval spaces navigations on one worker.
	MinInterval time.Duration
	// Jitter randomizes the spacing (0.0 to 1.0).
	Jitter float64
	// NavTimeout bounds a single page navigation.
	NavTimeout time.Duration

	// Driver selects the fetch strategy: chrome or http.
	Driver string
	// Headless controls whether Chrome renders offscreen.
	Headless bool
	// ChromePath overrides the Chrome binary location.
	ChromePath string
	// ProxyFile points at a newline-separated proxy list (http driver only).
	ProxyFile string

	// CacheBackend selects the cache store: memory, sqlite, postgres or none.
	CacheBackend string
	// CacheDSN is the sqlite path or postgres connection string.
	CacheDSN string
	// CacheTTL overrides the per-engine default when positive.
	CacheTTL time.Duration

	// MetricsPort exposes /metrics when positive.
	MetricsPort int
	// Verbose switches logging to debug level.
	Verbose bool

	// Antibot tunes the per-session controller.
	Antibot antibot.Config
}

// Default returns conservative defaults for interactive use.
func Default() *Config {
	return &Config{
		Workers:      3,
		MinInterval:  2 * time.Second,
		Jitter:       0.3,
		NavTimeout:   30 * time.Second,
		Driver:       "chrome",
		Headless:     true,
		CacheBackend: "memory",
		CacheDSN:     "serpent-cache.db",
		Antibot:      antibot.DefaultConfig(),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min interval cannot be negative")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if c.Driver != "chrome" && c.Driver != "http" {
		return fmt.Errorf("driver must be chrome or http")
	}
	switch c.CacheBackend {
	case "memory", "none":
	case "sqlite", "postgres":
		if c.CacheDSN == "" {
			return fmt.Errorf("%s cache requires a DSN", c.CacheBackend)
		}
	default:
		return fmt.Errorf("cache backend must be memory, sqlite, postgres or none")
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("metrics port out of range")
	}
	return nil
}

// FromEnv overlays SERPENT_* environment variables onto the config.
// Unset variables leave the existing values alone.
func (c *Config) FromEnv() error {
	if v := os.Getenv("SERPENT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERPENT_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("SERPENT_MIN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SERPENT_MIN_INTERVAL: %w", err)
		}
		c.MinInterval = d
	}
	if v := os.Getenv("SERPENT_NAV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SERPENT_NAV_TIMEOUT: %w", err)
		}
		c.NavTimeout = d
	}
	if v := os.Getenv("SERPENT_DRIVER"); v != "" {
		c.Driver = v
	}
	if v := os.Getenv("SERPENT_CHROME_PATH"); v != "" {
		c.ChromePath = v
	}
	if v := os.Getenv("SERPENT_PROXY_FILE"); v != "" {
		c.ProxyFile = v
	}
	if v := os.Getenv("SERPENT_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("SERPENT_CACHE_DSN"); v != "" {
		c.CacheDSN = v
	}
	if v := os.Getenv("SERPENT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SERPENT_CACHE_TTL: %w", err)
		}
		c.CacheTTL = d
	}
	if v := os.Getenv("SERPENT_METRICS_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERPENT_METRICS_PORT: %w", err)
		}
		c.MetricsPort = n
	}
	return nil
}
