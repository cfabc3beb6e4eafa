// Package cache provides the redis-backed embedding cache.  Embeddings are
// deterministic for identical input, which makes them safe to cache by
// content hash; the cache is a pure accelerator and its failures never
// surface to callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
)

// Config configures the embedding cache.
type Config struct {
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db" json:"db"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl"`
	Prefix   string        `mapstructure:"prefix" json:"prefix"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		TTL:    24 * time.Hour,
		Prefix: "clinsignal:emb:",
	}
}

// EmbeddingCache stores embedding vectors keyed by the SHA-256 of their
// source text.
type EmbeddingCache struct {
	rdb    *redis.Client
	cfg    Config
	logger logging.Logger
}

// NewEmbeddingCache connects to redis and verifies the connection.
func NewEmbeddingCache(ctx context.Context, cfg Config, logger logging.Logger) (*EmbeddingCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return &EmbeddingCache{rdb: rdb, cfg: cfg, logger: logger.Named("embcache")}, nil
}

// Close releases the underlying redis connection.
func (c *EmbeddingCache) Close() error {
	return c.rdb.Close()
}

// Ping verifies the redis connection, for readiness probes.
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

// Key derives the cache key for a text.
func (c *EmbeddingCache) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.cfg.Prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, or (nil, false) on a miss or any
// redis error.
func (c *EmbeddingCache) Get(ctx context.Context, text string) ([]float64, bool) {
	raw, err := c.rdb.Get(ctx, c.Key(text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Debug("embedding cache read failed", logging.Err(err))
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		c.logger.Warn("corrupt embedding cache entry dropped", logging.Err(err))
		c.rdb.Del(ctx, c.Key(text))
		return nil, false
	}
	return vec, true
}

// Set stores the vector for text.  Failures are logged and swallowed.
func (c *EmbeddingCache) Set(ctx context.Context, text string, vec []float64) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.Key(text), raw, c.cfg.TTL).Err(); err != nil {
		c.logger.Debug("embedding cache write failed", logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Caching embedder decorator
// ─────────────────────────────────────────────────────────────────────────────

// VectorCache is the read/write surface CachingEmbedder needs; satisfied
// by EmbeddingCache and by in-memory fakes in tests.
type VectorCache interface {
	Get(ctx context.Context, text string) ([]float64, bool)
	Set(ctx context.Context, text string, vec []float64)
}

// CachingEmbedder wraps an Embedder with a vector cache.  Concurrent
// requests for the same uncached text collapse into one oracle call.
type CachingEmbedder struct {
	inner   common.Embedder
	cache   VectorCache
	metrics common.PipelineMetrics
	group   singleflight.Group
}

// NewCachingEmbedder builds the decorator.
func NewCachingEmbedder(inner common.Embedder, cache VectorCache, metrics common.PipelineMetrics) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache, metrics: metrics}
}

// Embed returns the cached vector for text or fetches and caches it.
func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := e.cache.Get(ctx, text); ok {
		e.metrics.RecordCacheAccess(ctx, true)
		return vec, nil
	}
	e.metrics.RecordCacheAccess(ctx, false)

	v, err, _ := e.group.Do(text, func() (any, error) {
		vec, err := e.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		e.cache.Set(ctx, text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// EmbedBatch serves cached entries locally and fetches only the misses
// from the inner embedder, reassembling results in input order.
func (e *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := e.cache.Get(ctx, text); ok {
			e.metrics.RecordCacheAccess(ctx, true)
			out[i] = vec
			continue
		}
		e.metrics.RecordCacheAccess(ctx, false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		fetched, err := e.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fetched) != len(missTexts) {
			return nil, errors.MalformedOutput("embedder", "embedding count mismatch")
		}
		for j, vec := range fetched {
			out[missIdx[j]] = vec
			e.cache.Set(ctx, missTexts[j], vec)
		}
	}
	return out, nil
}
