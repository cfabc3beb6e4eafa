// Package config defines the configuration structures for the clinsignal
// service and their loading, defaults, and validation.
package config

import (
	"fmt"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/cache"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/infrastructure/oracle"
	"github.com/clinsignal/clinsignal/internal/intelligence/noteprep"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig wraps the embedding cache settings with an enable switch;
// when disabled the service runs without redis.
type CacheConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	cache.Config `mapstructure:",squash"`
}

// PipelineConfig holds the tunables of the text pipeline itself.
type PipelineConfig struct {
	Normalizer noteprep.NormalizerConfig `mapstructure:"normalizer"`
	// DefaultTopK bounds similarity searches that do not specify a limit.
	DefaultTopK int `mapstructure:"default_top_k"`
	// DefaultThreshold filters similarity results when the request leaves
	// the threshold unset.
	DefaultThreshold float64 `mapstructure:"default_threshold"`
	// TrajectoryConcurrency bounds parallel scoring calls per trajectory.
	TrajectoryConcurrency int `mapstructure:"trajectory_concurrency"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Log      logging.LogConfig   `mapstructure:"log"`
	Oracle   oracle.ClientConfig `mapstructure:"oracle"`
	Cache    CacheConfig         `mapstructure:"cache"`
	Pipeline PipelineConfig      `mapstructure:"pipeline"`
}

// Validate performs semantic validation of the fully-populated Config.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if err := c.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache.enabled")
	}
	if c.Pipeline.DefaultTopK <= 0 {
		return fmt.Errorf("pipeline.default_top_k must be positive: %d", c.Pipeline.DefaultTopK)
	}
	if c.Pipeline.DefaultThreshold < -1 || c.Pipeline.DefaultThreshold > 1 {
		return fmt.Errorf("pipeline.default_threshold outside [-1, 1]: %g", c.Pipeline.DefaultThreshold)
	}
	if c.Pipeline.TrajectoryConcurrency <= 0 {
		return fmt.Errorf("pipeline.trajectory_concurrency must be positive: %d", c.Pipeline.TrajectoryConcurrency)
	}
	return nil
}
