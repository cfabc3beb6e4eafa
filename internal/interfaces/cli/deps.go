package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinsignal/clinsignal/internal/application/cohort"
	"github.com/clinsignal/clinsignal/internal/application/notes"
	"github.com/clinsignal/clinsignal/internal/application/risk"
	"github.com/clinsignal/clinsignal/internal/application/search"
	"github.com/clinsignal/clinsignal/internal/config"
	"github.com/clinsignal/clinsignal/internal/infrastructure/cache"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/infrastructure/oracle"
	"github.com/clinsignal/clinsignal/internal/intelligence/casesim"
	"github.com/clinsignal/clinsignal/internal/intelligence/clinextract"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/internal/intelligence/noteprep"
	"github.com/clinsignal/clinsignal/internal/intelligence/risktraj"
)

// Services bundles the fully wired application services together with the
// infrastructure they depend on.
type Services struct {
	Notes  notes.Service
	Search search.Service
	Risk   risk.Service
	Cohort cohort.Service

	Oracle   *oracle.Client
	Cache    *cache.EmbeddingCache
	Registry *prometheus.Registry
}

// BuildServices wires the full dependency graph from configuration: the
// oracle client, the optional redis embedding cache, the intelligence
// components and the application services on top of them.
func BuildServices(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Services, error) {
	registry := prometheus.NewRegistry()
	metrics, err := common.NewPrometheusMetrics(registry)
	if err != nil {
		return nil, err
	}

	client, err := oracle.NewClient(cfg.Oracle, logger, metrics)
	if err != nil {
		return nil, err
	}

	var embedder common.Embedder = client
	var embCache *cache.EmbeddingCache
	if cfg.Cache.Enabled {
		embCache, err = cache.NewEmbeddingCache(ctx, cfg.Cache.Config, logger)
		if err != nil {
			// The pipeline works without the cache; degrade instead of
			// refusing to start.
			logger.Warn("embedding cache unavailable, running uncached", logging.Err(err))
			embCache = nil
		} else {
			embedder = cache.NewCachingEmbedder(client, embCache, metrics)
		}
	}

	normalizer := noteprep.NewNormalizer(cfg.Pipeline.Normalizer)
	sections := noteprep.NewSectionExtractor()
	extractor := clinextract.NewExtractor(clinextract.NewModelProducer(client), logger, metrics)
	ranker := casesim.NewRanker(embedder, logger, metrics)
	aggregator := risktraj.NewAggregator(client, cfg.Pipeline.TrajectoryConcurrency, logger, metrics)

	return &Services{
		Notes:  notes.NewService(normalizer, sections, extractor, cfg.Pipeline.TrajectoryConcurrency, logger),
		Search: search.NewService(ranker, search.DefaultCaseSource(), cfg.Pipeline.DefaultTopK, cfg.Pipeline.DefaultThreshold, logger),
		Risk:   risk.NewService(aggregator, cfg.Pipeline.TrajectoryConcurrency, logger),
		Cohort: cohort.NewService(cohort.DefaultRegistry(), ranker, logger),

		Oracle:   client,
		Cache:    embCache,
		Registry: registry,
	}, nil
}
