package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative interval", func(c *Config) { c.MinInterval = -time.Second }},
		{"jitter above one", func(c *Config) { c.Jitter = 1.5 }},
		{"zero nav timeout", func(c *Config) { c.NavTimeout = 0 }},
		{"unknown driver", func(c *Config) { c.Driver = "lynx" }},
		{"unknown cache backend", func(c *Config) { c.CacheBackend = "redis" }},
		{"sqlite without dsn", func(c *Config) { c.CacheBackend = "sqlite"; c.CacheDSN = "" }},
		{"metrics port out of range", func(c *Config) { c.MetricsPort = 70000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SERPENT_WORKERS", "7")
	t.Setenv("SERPENT_MIN_INTERVAL", "5s")
	t.Setenv("SERPENT_DRIVER", "http")
	t.Setenv("SERPENT_CACHE_BACKEND", "sqlite")
	t.Setenv("SERPENT_CACHE_DSN", "/tmp/cache.db")

	cfg := Default()
	if err := cfg.FromEnv(); err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Workers != 7 {
		t.Errorf("Workers = %d, want 7", cfg.Workers)
	}
	if cfg.MinInterval != 5*time.Second {
		t.Errorf("MinInterval = %v, want 5s", cfg.MinInterval)
	}
	if cfg.Driver != "http" {
		t.Errorf("Driver = %q, want http", cfg.Driver)
	}
	if cfg.CacheBackend != "sqlite" || cfg.CacheDSN != "/tmp/cache.db" {
		t.Errorf("cache config = %q/%q", cfg.CacheBackend, cfg.CacheDSN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after FromEnv = %v", err)
	}
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("SERPENT_WORKERS", "many")
	cfg := Default()
	if err := cfg.FromEnv(); err == nil {
		t.Error("expected an error for a non-numeric worker count")
	}
}
