// Package config holds the pipeline tunables and their defaults, loadable
// from a config file and overridable from the environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
)

// Config carries every tunable the pipeline exposes. Zero values are
// replaced with defaults by the components themselves, so a partially
// populated Config is safe to use.
type Config struct {
	// Voice is the default synthesis voice.
	Voice string `env:"SAYPIPE_VOICE" yaml:"voice"`

	// CacheDir is the artifact cache location. Empty means the
	// platform cache directory.
	CacheDir string `env:"SAYPIPE_CACHE_DIR" yaml:"cache_dir"`

	// Segmentation bounds, in runes.
	MaxChunkSize int `env:"SAYPIPE_MAX_CHUNK_SIZE" yaml:"max_chunk_size"`
	MinChunkSize int `env:"SAYPIPE_MIN_CHUNK_SIZE" yaml:"min_chunk_size"`

	// Cache invariants.
	MaxCacheEntries int           `env:"SAYPIPE_MAX_CACHE_ENTRIES" yaml:"max_cache_entries"`
	RetentionWindow time.Duration `env:"SAYPIPE_RETENTION_WINDOW" yaml:"retention_window"`

	// Retry policy for synthesis calls.
	MaxAttempts int           `env:"SAYPIPE_MAX_ATTEMPTS" yaml:"max_attempts"`
	BaseDelay   time.Duration `env:"SAYPIPE_BASE_DELAY" yaml:"base_delay"`
	MaxDelay    time.Duration `env:"SAYPIPE_MAX_DELAY" yaml:"max_delay"`

	// MaxInFlight bounds concurrent synthesis calls within one request.
	MaxInFlight int `env:"SAYPIPE_MAX_IN_FLIGHT" yaml:"max_in_flight"`

	// RequestsPerMinute paces the synthesis client across requests.
	RequestsPerMinute int `env:"SAYPIPE_REQUESTS_PER_MINUTE" yaml:"requests_per_minute"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Voice:             "zh-CN-XiaoxiaoNeural",
		MaxChunkSize:      1200,
		MinChunkSize:      50,
		MaxCacheEntries:   50,
		RetentionWindow:   168 * time.Hour,
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          10 * time.Second,
		MaxInFlight:       3,
		RequestsPerMinute: 60,
	}
}

// FromEnv applies SAYPIPE_* environment overrides on top of cfg.
func FromEnv(cfg Config) (Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ResolveCacheDir returns cfg.CacheDir, or the platform cache directory
// when unset.
func (c Config) ResolveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	scope := gap.NewScope(gap.User, "saypipe")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.MinChunkSize > 0 && c.MaxChunkSize > 0 && c.MinChunkSize >= c.MaxChunkSize {
		return fmt.Errorf("min chunk size %d must be below max chunk size %d", c.MinChunkSize, c.MaxChunkSize)
	}
	if c.Voice == "" {
		return fmt.Errorf("voice must not be empty")
	}
	return nil
}
