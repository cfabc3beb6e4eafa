package casesim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// vectorEmbedder serves fixed vectors keyed by text.
type vectorEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (e *vectorEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vectors[text], nil
}

func (e *vectorEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func newTestRanker(e common.Embedder) *Ranker {
	return NewRanker(e, logging.NewNopLogger(), common.NewNoopMetrics())
}

func TestRankSelfSimilarityIsOne(t *testing.T) {
	e := &vectorEmbedder{vectors: map[string][]float64{
		"chest pain": {0.3, -1.2, 0.5},
	}}
	r := newTestRanker(e)

	got, err := r.Rank(context.Background(), "chest pain", []string{"chest pain"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestRankOrdersByDescendingSimilarity(t *testing.T) {
	e := &vectorEmbedder{vectors: map[string][]float64{
		"chest pain":                  {1, 0, 0},
		"acute myocardial infarction": {0.9, 0.1, 0},
		"broken arm":                  {0, 0, 1},
	}}
	r := newTestRanker(e)

	got, err := r.Rank(context.Background(), "chest pain",
		[]string{"broken arm", "acute myocardial infarction"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "acute myocardial infarction", got[0].Text)
	assert.Equal(t, "broken arm", got[1].Text)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 0, got[1].Index)
}

func TestRankStableUnderCandidatePermutation(t *testing.T) {
	vectors := map[string][]float64{
		"q": {0.2, 0.5, 0.1, 0.9},
		"a": {0.1, 0.4, 0.2, 0.8},
		"b": {0.9, 0.1, 0.3, 0.1},
		"c": {0.3, 0.6, 0.0, 0.7},
		"d": {0.5, 0.5, 0.5, 0.5},
	}
	r := newTestRanker(&vectorEmbedder{vectors: vectors})

	base := []string{"a", "b", "c", "d"}
	want, err := r.Rank(context.Background(), "q", base, 3)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		shuffled := make([]string, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := r.Rank(context.Background(), "q", shuffled, 3)
		require.NoError(t, err)
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].Text, got[j].Text)
			assert.InDelta(t, want[j].Score, got[j].Score, 1e-9)
			assert.Equal(t, shuffled[got[j].Index], got[j].Text)
		}
	}
}

func TestRankZeroVectorYieldsZeroScore(t *testing.T) {
	e := &vectorEmbedder{vectors: map[string][]float64{
		"q":    {1, 2, 3},
		"zero": {0, 0, 0},
	}}
	r := newTestRanker(e)

	got, err := r.Rank(context.Background(), "q", []string{"zero"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Score)
}

func TestRankTopKTruncates(t *testing.T) {
	e := &vectorEmbedder{vectors: map[string][]float64{
		"q": {1, 0},
		"a": {1, 0},
		"b": {0.5, 0.5},
		"c": {0, 1},
	}}
	r := newTestRanker(e)

	got, err := r.Rank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestRankRejectsEmptyQuery(t *testing.T) {
	r := newTestRanker(&vectorEmbedder{})

	_, err := r.Rank(context.Background(), "  ", []string{"a"}, 1)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestRankEmptyCandidates(t *testing.T) {
	r := newTestRanker(&vectorEmbedder{})

	got, err := r.Rank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRankPropagatesEmbedderFailure(t *testing.T) {
	e := &vectorEmbedder{err: errors.OracleUnavailable("embedder", nil)}
	r := newTestRanker(e)

	_, err := r.Rank(context.Background(), "q", []string{"a"}, 1)
	require.Error(t, err)
	assert.True(t, errors.IsOracleUnavailable(err))
}

func TestRankRejectsDimensionMismatch(t *testing.T) {
	e := &vectorEmbedder{vectors: map[string][]float64{
		"q": {1, 0, 0},
		"a": {1, 0},
	}}
	r := newTestRanker(e)

	_, err := r.Rank(context.Background(), "q", []string{"a"}, 1)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedOutput(err))
}

func TestFilterByThreshold(t *testing.T) {
	in := []clinical.SimilarityResult{
		{Index: 0, Text: "a", Score: 0.9},
		{Index: 1, Text: "b", Score: 0.4},
		{Index: 2, Text: "c", Score: 0.39},
	}

	got := FilterByThreshold(in, 0.4)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}
