package config

import (
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/cache"
	"github.com/clinsignal/clinsignal/internal/infrastructure/oracle"
)

// ApplyDefaults fills unset fields of cfg with production defaults.  Only
// zero values are touched; anything set by file or environment wins.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	def := oracle.DefaultClientConfig()
	if cfg.Oracle.BaseURL == "" {
		cfg.Oracle.BaseURL = def.BaseURL
	}
	if cfg.Oracle.RequestTimeout == 0 {
		cfg.Oracle.RequestTimeout = def.RequestTimeout
	}
	if cfg.Oracle.MaxBatchSize == 0 {
		cfg.Oracle.MaxBatchSize = def.MaxBatchSize
	}

	cdef := cache.DefaultConfig()
	if cfg.Cache.Addr == "" {
		cfg.Cache.Addr = cdef.Addr
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = cdef.TTL
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = cdef.Prefix
	}

	if cfg.Pipeline.DefaultTopK == 0 {
		cfg.Pipeline.DefaultTopK = 10
	}
	if cfg.Pipeline.DefaultThreshold == 0 {
		cfg.Pipeline.DefaultThreshold = 0.5
	}
	if cfg.Pipeline.TrajectoryConcurrency == 0 {
		cfg.Pipeline.TrajectoryConcurrency = 4
	}
}
