// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. The read API and the
operator CLI share the same schema.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Per-source crawler settings are nested structs read under their own prefix,
for example BOOKS_TW_MIN_INTERVAL.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/tankobon/internal/platform/database"
	"github.com/taibuivan/tankobon/internal/platform/fetch"
)

// # Configuration Schema

// Config holds all runtime configuration for Tankobon.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Catalog database
	DatabaseDriver database.Driver `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string          `env:"DATABASE_URL"`
	SQLitePath     string          `env:"SQLITE_PATH"     envDefault:"./data/tankobon.db"`

	// Optional Redis for cross-process series locks. Empty means in-process locks.
	RedisURL string        `env:"REDIS_URL"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"30s"`

	// Ingest worker pool
	Workers   int `env:"INGEST_WORKERS"    envDefault:"4"`
	QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"64"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// Retailer sources
	BooksTW SourceConfig `envPrefix:"BOOKS_TW_"`
}

// SourceConfig holds the fetch settings of one retailer.
type SourceConfig struct {
	ListingURL string `env:"LISTING_URL" envDefault:"https://www.books.com.tw/web/sys_compub/books/16/?loc=P_0001_017"`
	UserAgent  string `env:"USER_AGENT"`

	MinInterval time.Duration `env:"MIN_INTERVAL" envDefault:"20s"`
	Timeout     time.Duration `env:"TIMEOUT"      envDefault:"30s"`

	ThrottleStatus      int           `env:"THROTTLE_STATUS"       envDefault:"484"`
	ThrottleBaseDelay   time.Duration `env:"THROTTLE_BASE_DELAY"   envDefault:"30s"`
	ThrottleMaxAttempts int           `env:"THROTTLE_MAX_ATTEMPTS" envDefault:"3"`

	RetryCount   int           `env:"RETRY_COUNT"    envDefault:"2"`
	RetryWait    time.Duration `env:"RETRY_WAIT"     envDefault:"1s"`
	RetryMaxWait time.Duration `env:"RETRY_MAX_WAIT" envDefault:"10s"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field rules env tags cannot express.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case database.DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %s driver", c.DatabaseDriver)
		}
	case database.DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the %s driver", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("config: unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.Workers < 1 {
		return fmt.Errorf("config: INGEST_WORKERS must be positive, got %d", c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("config: INGEST_QUEUE_SIZE must not be negative, got %d", c.QueueSize)
	}
	if c.BooksTW.ThrottleMaxAttempts < 0 || c.BooksTW.RetryCount < 0 {
		return fmt.Errorf("config: BOOKS_TW retry counts must not be negative")
	}
	return nil
}

// DatabaseDSN is the connection string for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseDriver == database.DriverSQLite {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Policy converts the source settings into a fetch policy.
func (s SourceConfig) Policy() fetch.Policy {
	policy := fetch.DefaultPolicy()
	policy.ThrottleStatus = s.ThrottleStatus
	policy.ThrottleBaseDelay = s.ThrottleBaseDelay
	policy.ThrottleMaxAttempts = s.ThrottleMaxAttempts
	policy.RetryCount = s.RetryCount
	policy.RetryWait = s.RetryWait
	policy.RetryMaxWait = s.RetryMaxWait
	policy.MinInterval = s.MinInterval
	policy.Timeout = s.Timeout
	if s.UserAgent != "" {
		policy.UserAgent = s.UserAgent
	}
	return policy
}
