// Package casesim ranks candidate clinical cases by embedding similarity
// against a query note.  Embeddings come from the injected embedding
// oracle; the ranker owns only the vector math and ordering.
package casesim

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// Ranker computes cosine-similarity rankings of candidate texts.  It is
// stateless apart from its injected collaborators and safe for concurrent
// use.
type Ranker struct {
	embedder common.Embedder
	logger   logging.Logger
	metrics  common.PipelineMetrics
}

// NewRanker builds a Ranker over the given embedding oracle.
func NewRanker(embedder common.Embedder, logger logging.Logger, metrics common.PipelineMetrics) *Ranker {
	return &Ranker{embedder: embedder, logger: logger, metrics: metrics}
}

// Rank embeds the query and every candidate, scores each candidate by
// cosine similarity, and returns the top k results ordered by descending
// score.  Threshold filtering is deliberately not applied here: callers
// select from the top k and drop sub-threshold entries themselves, so a
// below-threshold result inside the top k is never backfilled from outside
// it.  Every result index refers to the candidate's position in the input
// slice.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []string, topK int) ([]clinical.SimilarityResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.InvalidInput("rank_similar_cases", "empty query")
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = len(candidates)
	}

	start := time.Now()

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.metrics.RecordOperation(ctx, "rank_similar_cases", sinceMs(start), false)
		return nil, err
	}
	if err := common.ValidateVector("embedder", queryVec, 0); err != nil {
		return nil, err
	}

	candVecs, err := r.embedder.EmbedBatch(ctx, candidates)
	if err != nil {
		r.metrics.RecordOperation(ctx, "rank_similar_cases", sinceMs(start), false)
		return nil, err
	}
	if len(candVecs) != len(candidates) {
		return nil, errors.MalformedOutput("embedder", "candidate embedding count mismatch")
	}

	queryUnit := unitNorm(queryVec)
	results := make([]clinical.SimilarityResult, 0, len(candidates))
	for i, vec := range candVecs {
		if err := common.ValidateVector("embedder", vec, len(queryVec)); err != nil {
			return nil, err
		}
		results = append(results, clinical.SimilarityResult{
			Index: i,
			Text:  candidates[i],
			Score: dot(queryUnit, unitNorm(vec)),
		})
	}

	// Descending score; index ascending keeps equal scores deterministic
	// under candidate-order permutation.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})

	if topK < len(results) {
		results = results[:topK]
	}

	r.metrics.RecordOperation(ctx, "rank_similar_cases", sinceMs(start), true)
	return results, nil
}

// FilterByThreshold drops results scoring below threshold, preserving
// order.  Applied after top-k selection so filtered slots are never
// backfilled.
func FilterByThreshold(results []clinical.SimilarityResult, threshold float64) []clinical.SimilarityResult {
	kept := make([]clinical.SimilarityResult, 0, len(results))
	for _, res := range results {
		if res.Score >= threshold {
			kept = append(kept, res)
		}
	}
	return kept
}

// unitNorm scales vec to unit L2 norm.  A zero or near-zero vector comes
// back zeroed, which makes its cosine similarity against anything 0 rather
// than a division error.
func unitNorm(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	out := make([]float64, len(vec))
	if norm < 1e-12 {
		return out
	}
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
