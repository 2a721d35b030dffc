// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Ledger drivers.
const (
	LedgerMemory   = "memory"
	LedgerPostgres = "postgres"
)

// Feed cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Series sources.
const (
	DeriveFromLedger = "ledger"
	DeriveFromFetch  = "fetch"
)

// Index policies.
const (
	IndexCompact  = "compact"
	IndexSchedule = "schedule"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// CORSAllowedOrigins lists origins allowed to call the read API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// LedgerDriver selects the game ledger backend: memory or postgres.
	LedgerDriver string `koanf:"ledger_driver"`
	PostgresURL  string `koanf:"postgres_url"`

	// ReferenceFile points at a YAML team table. Empty uses the built-in table.
	ReferenceFile string `koanf:"reference_file"`

	// Season is the feed season key, e.g. 20232024.
	Season            string        `koanf:"season"`
	FeedBaseURL       string        `koanf:"feed_base_url"`
	FeedUserAgent     string        `koanf:"feed_user_agent"`
	FeedTimeout       time.Duration `koanf:"feed_timeout"`
	FeedRatePerSecond float64       `koanf:"feed_rate_per_second"`
	FeedBurst         int           `koanf:"feed_burst"`
	FeedConcurrency   int           `koanf:"feed_concurrency"`

	// FeedCache caches raw schedule bodies: none, file or redis.
	FeedCache    string        `koanf:"feed_cache"`
	FeedCacheTTL time.Duration `koanf:"feed_cache_ttl"`
	FeedCacheDir string        `koanf:"feed_cache_dir"`
	RedisURL     string        `koanf:"redis_url"`

	// FetchTimeout bounds one background season fetch.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	// HandoffCapacity bounds fetched batches waiting for the loop.
	HandoffCapacity int `koanf:"handoff_capacity"`
	// FrameInterval is the foreground loop tick.
	FrameInterval time.Duration `koanf:"frame_interval"`

	// BaselinePointsPerGame is subtracted from every game's points.
	BaselinePointsPerGame float64 `koanf:"baseline_points_per_game"`
	IndexPolicy           string  `koanf:"index_policy"`
	DeriveFrom            string  `koanf:"derive_from"`
	// ScoreBackfill lets a known unscored game take its score once it is
	// final. This is the only UPDATE the ledger sees; false keeps it
	// strictly insert-only, and games first stored before they were played
	// then never count.
	ScoreBackfill bool `koanf:"score_backfill"`

	// RefreshSchedule is a cron expression. Empty disables scheduled refreshes.
	RefreshSchedule string `koanf:"refresh_schedule"`
	RefreshOnStart  bool   `koanf:"refresh_on_start"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		CORSAllowedOrigins:    []string{"*"},
		LedgerDriver:          LedgerMemory,
		Season:                "20232024",
		FeedBaseURL:           "https://api-web.nhle.com/v1",
		FeedUserAgent:         "hockeyplots/1.0",
		FeedTimeout:           10 * time.Second,
		FeedRatePerSecond:     8,
		FeedBurst:             4,
		FeedConcurrency:       8,
		FeedCache:             CacheNone,
		FeedCacheTTL:          15 * time.Minute,
		FeedCacheDir:          ".cache/schedules",
		FetchTimeout:          2 * time.Minute,
		HandoffCapacity:       4,
		FrameInterval:         100 * time.Millisecond,
		BaselinePointsPerGame: 1.0,
		IndexPolicy:           IndexCompact,
		DeriveFrom:            DeriveFromLedger,
		ScoreBackfill:         true,
		RefreshOnStart:        false,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LedgerDriver {
	case LedgerMemory:
	case LedgerPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("%w: postgres_url is required for the postgres ledger", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ledger_driver %q", ErrInvalidConfig, c.LedgerDriver)
	}
	if c.Season == "" {
		return fmt.Errorf("%w: season must not be empty", ErrInvalidConfig)
	}
	if u, err := url.Parse(c.FeedBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: feed_base_url %q is not an absolute URL", ErrInvalidConfig, c.FeedBaseURL)
	}
	if c.FeedTimeout <= 0 || c.FetchTimeout <= 0 || c.FrameInterval <= 0 {
		return fmt.Errorf("%w: timeouts and frame_interval must be positive", ErrInvalidConfig)
	}
	if c.FeedRatePerSecond <= 0 || c.FeedBurst <= 0 || c.FeedConcurrency <= 0 {
		return fmt.Errorf("%w: feed rate, burst and concurrency must be positive", ErrInvalidConfig)
	}
	switch c.FeedCache {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis feed cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown feed_cache %q", ErrInvalidConfig, c.FeedCache)
	}
	if c.HandoffCapacity <= 0 {
		return fmt.Errorf("%w: handoff_capacity must be positive", ErrInvalidConfig)
	}
	if c.IndexPolicy != IndexCompact && c.IndexPolicy != IndexSchedule {
		return fmt.Errorf("%w: unknown index_policy %q", ErrInvalidConfig, c.IndexPolicy)
	}
	if c.DeriveFrom != DeriveFromLedger && c.DeriveFrom != DeriveFromFetch {
		return fmt.Errorf("%w: unknown derive_from %q", ErrInvalidConfig, c.DeriveFrom)
	}
	if strings.TrimSpace(c.RefreshSchedule) != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			return fmt.Errorf("%w: refresh_schedule: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
