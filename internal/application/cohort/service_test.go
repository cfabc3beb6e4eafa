package cohort

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

// noteEmbedder gives notes containing a marker word a vector close to the
// criterion's, everything else an orthogonal one.
type noteEmbedder struct {
	marker string
}

func (e *noteEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if text == e.marker || containsFold(text, e.marker) {
		return []float64{1, 0}, nil
	}
	return []float64{0, 1}, nil
}

func (e *noteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if a != b && a != b+32 && a != b-32 {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newTestService(marker string) Service {
	logger := logging.NewNopLogger()
	ranker := casesim.NewRanker(&noteEmbedder{marker: marker}, logger, common.NewNoopMetrics())
	return NewService(nil, ranker, logger)
}

func intPtr(n int) *int { return &n }

func TestIdentifyByAgeRange(t *testing.T) {
	s := newTestService("")

	got, err := s.Identify(context.Background(), &Criteria{AgeMin: intPtr(60), AgeMax: intPtr(75)})
	require.NoError(t, err)

	assert.Equal(t, 5, got.Screened)
	require.Equal(t, 2, got.Matched)
	assert.Equal(t, "P001", got.Patients[0].ID)
	assert.Equal(t, "P002", got.Patients[1].ID)
}

func TestIdentifyByGenderAndCondition(t *testing.T) {
	s := newTestService("")

	got, err := s.Identify(context.Background(), &Criteria{
		Gender:     "male",
		Conditions: []string{"diabetes"},
	})
	require.NoError(t, err)

	require.Equal(t, 3, got.Matched)
	for _, p := range got.Patients {
		assert.Equal(t, "male", p.Gender)
	}
}

func TestIdentifyByMedication(t *testing.T) {
	s := newTestService("")

	got, err := s.Identify(context.Background(), &Criteria{Medications: []string{"warfarin"}})
	require.NoError(t, err)

	require.Equal(t, 1, got.Matched)
	assert.Equal(t, "P002", got.Patients[0].ID)
}

func TestIdentifyWithSemanticCriterion(t *testing.T) {
	s := newTestService("heart failure")

	got, err := s.Identify(context.Background(), &Criteria{
		Conditions:    []string{"diabetes"},
		TextCriterion: "heart failure",
	})
	require.NoError(t, err)

	require.Equal(t, 1, got.Matched)
	assert.Equal(t, "P002", got.Patients[0].ID)
}

func TestIdentifyRejectsEmptyCriteria(t *testing.T) {
	s := newTestService("")

	_, err := s.Identify(context.Background(), &Criteria{})
	assert.True(t, errors.IsInvalidInput(err))

	_, err = s.Identify(context.Background(), nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestIdentifyNoMatches(t *testing.T) {
	s := newTestService("")

	got, err := s.Identify(context.Background(), &Criteria{Conditions: []string{"cystic fibrosis"}})
	require.NoError(t, err)
	assert.Zero(t, got.Matched)
	assert.Empty(t, got.Patients)
}

func TestFindSimilarPatients(t *testing.T) {
	s := newTestService("heart failure")

	got, err := s.FindSimilar(context.Background(), &SimilarInput{
		Summary:    "elderly patient with heart failure",
		Conditions: []string{"diabetes mellitus type 2"},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, got.Screened)
	require.Len(t, got.Patients, 1)
	p := got.Patients[0]
	assert.Equal(t, "P002", p.PatientID)
	assert.Equal(t, "Patient/P002", p.Reference)
	assert.InDelta(t, 1.0, p.Similarity, 1e-9)
	assert.Equal(t, "high", p.MatchStrength)
	assert.NotEmpty(t, p.Summary)
}

func TestFindSimilarRejectsEmptySummary(t *testing.T) {
	s := newTestService("")

	_, err := s.FindSimilar(context.Background(), &SimilarInput{Summary: "  "})
	assert.True(t, errors.IsInvalidInput(err))

	_, err = s.FindSimilar(context.Background(), nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestMatchStrengthBands(t *testing.T) {
	assert.Equal(t, "high", matchStrength(0.8))
	assert.Equal(t, "medium", matchStrength(0.6))
	assert.Equal(t, "low", matchStrength(0.4))
}

func TestAnalyzeCohortStatistics(t *testing.T) {
	s := newTestService("")

	got, err := s.Analyze(context.Background(), []string{"P001", "P002", "P003"})
	require.NoError(t, err)

	assert.Equal(t, 3, got.CohortSize)
	assert.InDelta(t, 65.0, got.Demographics.Age.Mean, 1e-9)
	assert.Equal(t, 58, got.Demographics.Age.Min)
	assert.Equal(t, 72, got.Demographics.Age.Max)
	assert.InDelta(t, 2.0/3.0, got.Demographics.Gender["male"], 1e-9)
	assert.InDelta(t, 1.0/3.0, got.Demographics.Gender["female"], 1e-9)

	// All three carry diabetes; two carry hypertension.
	require.NotEmpty(t, got.CommonConditions)
	assert.Equal(t, "diabetes mellitus type 2", got.CommonConditions[0].Condition)
	assert.InDelta(t, 1.0, got.CommonConditions[0].Frequency, 1e-9)
	assert.Equal(t, "hypertension", got.CommonConditions[1].Condition)
	assert.Equal(t, 6, got.UniqueConditions)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	s := newTestService("")

	_, err := s.Analyze(context.Background(), nil)
	assert.True(t, errors.IsInvalidInput(err))

	_, err = s.Analyze(context.Background(), []string{"P001", "P999"})
	assert.True(t, errors.IsInvalidInput(err))
}
