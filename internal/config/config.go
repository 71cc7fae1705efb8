// Package config loads the server configuration from the environment and
// optional credential profiles from an ini file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds.
	ListenAddr string
	// SnapshotPath is the bbolt file persisted directory listings live in.
	// Empty disables persistence.
	SnapshotPath string
	// SnapshotTTL bounds how stale a persisted listing may be served.
	SnapshotTTL time.Duration
	// ProfilesPath points at an ini file of named credential profiles.
	ProfilesPath string
	// DefaultEndpoint prefills the login form endpoint.
	DefaultEndpoint string
	// DefaultRegion is used when a login omits the region.
	DefaultRegion string
	// RateLimitRPS and RateLimitBurst tune the per-client API limiter.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads the configuration from DGC_* environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      os.Getenv("DGC_LISTEN_ADDR"),
		SnapshotPath:    os.Getenv("DGC_SNAPSHOT_PATH"),
		ProfilesPath:    os.Getenv("DGC_PROFILES_PATH"),
		DefaultEndpoint: os.Getenv("DGC_DEFAULT_ENDPOINT"),
		DefaultRegion:   os.Getenv("DGC_DEFAULT_REGION"),
	}

	if v := os.Getenv("DGC_SNAPSHOT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("DGC_SNAPSHOT_TTL: %w", err)
		}
		cfg.SnapshotTTL = d
	}
	if v := os.Getenv("DGC_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("DGC_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("DGC_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("DGC_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.SnapshotTTL == 0 {
		c.SnapshotTTL = 24 * time.Hour
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 20
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 40
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.SnapshotTTL < 0 {
		return fmt.Errorf("snapshot TTL must not be negative, got %s", c.SnapshotTTL)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must not be negative, got %f", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit burst must not be negative, got %d", c.RateLimitBurst)
	}
	return nil
}
