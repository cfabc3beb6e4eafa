package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/casesim"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
)

// axisEmbedder embeds texts onto fixed axes so similarities are exact.
type axisEmbedder struct {
	vectors map[string][]float64
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func threshold(v float64) *float64 { return &v }

func newTestService(vectors map[string][]float64, cases []string) Service {
	logger := logging.NewNopLogger()
	ranker := casesim.NewRanker(&axisEmbedder{vectors: vectors}, logger, common.NewNoopMetrics())
	var source CaseSource
	if cases != nil {
		source = StaticCases(cases)
	}
	return NewService(ranker, source, 5, 0.5, logger)
}

func TestSearchCasesRanksAndFilters(t *testing.T) {
	vectors := map[string][]float64{
		"chest pain": {1, 0, 0},
		"cardiac":    {0.95, 0.05, 0},
		"renal":      {0.6, 0.4, 0},
		"ortho":      {0, 1, 0},
	}
	s := newTestService(vectors, []string{"ortho", "cardiac", "renal"})

	got, err := s.SearchCases(context.Background(), &SearchInput{Query: "chest pain", Threshold: threshold(0.8)})
	require.NoError(t, err)

	require.Equal(t, 2, got.Total)
	assert.Equal(t, "cardiac", got.Results[0].Summary)
	assert.Equal(t, "renal", got.Results[1].Summary)
	assert.Equal(t, 1, got.Results[0].Rank)
	assert.Equal(t, 2, got.Results[1].Rank)
	assert.Equal(t, "case_1", got.Results[0].CaseID)
	assert.Equal(t, "Patient/1001", got.Results[0].PatientReference)
	assert.Equal(t, "Encounter/2001", got.Results[0].EncounterReference)
	assert.NotEmpty(t, got.QueryID)
}

func TestSearchCasesTopKBeforeThreshold(t *testing.T) {
	vectors := map[string][]float64{
		"q": {1, 0, 0},
		"a": {0.9, 0.1, 0},
		"b": {0.7, 0.3, 0},
	}
	s := newTestService(vectors, []string{"b", "a"})

	got, err := s.SearchCases(context.Background(), &SearchInput{Query: "q", Limit: 1, Threshold: threshold(0.999)})
	require.NoError(t, err)

	// The single top-k slot scores below threshold and is dropped, never
	// backfilled by "b".
	assert.Zero(t, got.Total)
}

func TestSearchCasesDefaultsApplied(t *testing.T) {
	vectors := map[string][]float64{"q": {1, 0, 0}}
	s := newTestService(vectors, []string{"a", "b"})

	got, err := s.SearchCases(context.Background(), &SearchInput{Query: "q"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Threshold, 1e-9)
}

func TestSearchCasesExplicitZeroThreshold(t *testing.T) {
	vectors := map[string][]float64{
		"q": {1, 0, 0},
		"a": {0.9, 0.1, 0},
		"b": {0.1, 0.9, 0},
	}
	s := newTestService(vectors, []string{"a", "b"})

	// 0.0 is a real threshold, not a request for the 0.5 default: both
	// candidates come back, including the one scoring under 0.5.
	got, err := s.SearchCases(context.Background(), &SearchInput{Query: "q", Threshold: threshold(0)})
	require.NoError(t, err)

	assert.Zero(t, got.Threshold)
	assert.Equal(t, 2, got.Total)
}

func TestSearchCasesRejectsEmptyQuery(t *testing.T) {
	s := newTestService(nil, nil)

	_, err := s.SearchCases(context.Background(), &SearchInput{Query: " "})
	assert.True(t, errors.IsInvalidInput(err))

	_, err = s.SearchCases(context.Background(), nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSearchDocumentsValidation(t *testing.T) {
	s := newTestService(map[string][]float64{"q": {1, 0, 0}}, nil)

	_, err := s.SearchDocuments(context.Background(), &DocumentSearchInput{Query: "q"})
	assert.True(t, errors.IsInvalidInput(err))

	big := make([]string, maxDocuments+1)
	for i := range big {
		big[i] = "doc"
	}
	_, err = s.SearchDocuments(context.Background(), &DocumentSearchInput{Query: "q", Documents: big})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestSearchDocumentsOmitsReferences(t *testing.T) {
	vectors := map[string][]float64{
		"q":   {1, 0, 0},
		"doc": {0.9, 0.1, 0},
	}
	s := newTestService(vectors, nil)

	got, err := s.SearchDocuments(context.Background(), &DocumentSearchInput{
		Query: "q", Documents: []string{"doc"}, Threshold: threshold(0.5),
	})
	require.NoError(t, err)
	require.Equal(t, 1, got.Total)
	assert.Empty(t, got.Results[0].PatientReference)
	assert.Equal(t, "case_0", got.Results[0].CaseID)
}
