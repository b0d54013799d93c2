// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named
// by PODIUM_CONFIG, then PODIUM_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Database drivers accepted in DatabaseDriver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Redis connection for the ranking cache.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	// CachePrefix namespaces every cache key.
	CachePrefix string `koanf:"cache_prefix"`

	// DatabaseDriver selects the durable store: postgres, sqlite or memory.
	DatabaseDriver string `koanf:"database_driver"`
	DatabaseDSN    string `koanf:"database_dsn"`

	// NATSURL enables notifications and prize awards when set.
	NATSURL             string `koanf:"nats_url"`
	NATSName            string `koanf:"nats_name"`
	NotifySubjectPrefix string `koanf:"notify_subject_prefix"`
	PrizeSubject        string `koanf:"prize_subject"`

	// Per-entry lock lease and acquisition retries.
	LockTTLMS          int `koanf:"lock_ttl_ms"`
	LockRetryCount     int `koanf:"lock_retry_count"`
	LockRetryBackoffMS int `koanf:"lock_retry_backoff_ms"`

	NotifyQueueSize   int `koanf:"notify_queue_size"`
	NotifyWorkerCount int `koanf:"notify_worker_count"`

	// PersistBatchSize bounds each durable write when mirroring scores.
	PersistBatchSize int `koanf:"persist_batch_size"`
	// FinalisedRetentionHours is how long finalised leaderboards stay cached.
	FinalisedRetentionHours int `koanf:"finalised_retention_hours"`
	// ActiveWindowSeconds is how recent a heartbeat must be to count as active.
	ActiveWindowSeconds int `koanf:"active_window_seconds"`
	// MetricsEnabled turns the Prometheus recorders on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshSeconds is how often runtime and queue gauges are refreshed.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`
	// AwardDedupeTTLHours is how long award idempotency keys are remembered.
	AwardDedupeTTLHours int `koanf:"award_dedupe_ttl_hours"`
	// AdjustConcurrency bounds concurrent per-user adjustments in one batch.
	AdjustConcurrency int `koanf:"adjust_concurrency"`

	DefaultCountry string `koanf:"default_country"`
	// MaxPageSize caps listing page sizes.
	MaxPageSize int `koanf:"max_page_size"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		RedisAddr:               "localhost:6379",
		CachePrefix:             "podium",
		DatabaseDriver:          DriverMemory,
		NATSName:                "podium",
		NotifySubjectPrefix:     "podium.notify",
		PrizeSubject:            "podium.prizes.award",
		LockTTLMS:               5000,
		LockRetryCount:          40,
		LockRetryBackoffMS:      25,
		NotifyQueueSize:         10_000,
		NotifyWorkerCount:       runtime.NumCPU(),
		PersistBatchSize:        500,
		FinalisedRetentionHours: 72,
		ActiveWindowSeconds:     120,
		AwardDedupeTTLHours:     24,
		MetricsEnabled:          true,
		MetricsRefreshSeconds:   10,
		AdjustConcurrency:       8,
		DefaultCountry:          "ZZ",
		MaxPageSize:             100,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr must not be empty", ErrInvalidConfig)
	case c.LockTTLMS <= 0 || c.LockRetryBackoffMS <= 0 || c.LockRetryCount < 0:
		return fmt.Errorf("%w: lock settings must be positive", ErrInvalidConfig)
	case c.PersistBatchSize <= 0 || c.MaxPageSize <= 0 || c.AdjustConcurrency <= 0:
		return fmt.Errorf("%w: batch, page and concurrency sizes must be positive", ErrInvalidConfig)
	case c.FinalisedRetentionHours <= 0 || c.ActiveWindowSeconds <= 0 || c.AwardDedupeTTLHours <= 0:
		return fmt.Errorf("%w: retention, active window and dedupe ttl must be positive", ErrInvalidConfig)
	case c.MetricsRefreshSeconds <= 0:
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	}
	switch c.DatabaseDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: database_dsn is required for %s", ErrInvalidConfig, c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("%w: unknown database_driver %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	return nil
}

// LockTTL is the per-entry lock lease.
func (c *Config) LockTTL() time.Duration { return time.Duration(c.LockTTLMS) * time.Millisecond }

// LockRetryBackoff is the wait between lock attempts.
func (c *Config) LockRetryBackoff() time.Duration {
	return time.Duration(c.LockRetryBackoffMS) * time.Millisecond
}

// Retention is how long finalised leaderboards stay cached.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.FinalisedRetentionHours) * time.Hour
}

// ActiveWindow is the heartbeat age under which a user is active.
func (c *Config) ActiveWindow() time.Duration {
	return time.Duration(c.ActiveWindowSeconds) * time.Second
}

// MetricsRefresh returns MetricsRefreshSeconds as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// AwardDedupeTTL returns AwardDedupeTTLHours as a duration.
func (c *Config) AwardDedupeTTL() time.Duration {
	return time.Duration(c.AwardDedupeTTLHours) * time.Hour
}
