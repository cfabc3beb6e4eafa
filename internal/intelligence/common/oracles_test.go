package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name    string
		vec     []float64
		wantDim int
		wantErr bool
	}{
		{"valid", []float64{0.1, 0.2, 0.3}, 3, false},
		{"dim check skipped", []float64{0.1, 0.2}, 0, false},
		{"empty", nil, 3, true},
		{"dimension mismatch", []float64{0.1, 0.2}, 3, true},
		{"nan component", []float64{0.1, math.NaN()}, 0, true},
		{"inf component", []float64{math.Inf(1)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVector("embedder", tt.vec, tt.wantDim)
			if tt.wantErr {
				assert.True(t, errors.IsMalformedOutput(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRisk(t *testing.T) {
	assert.NoError(t, ValidateRisk("scorer", 0))
	assert.NoError(t, ValidateRisk("scorer", 1))
	assert.NoError(t, ValidateRisk("scorer", 0.42))
	assert.True(t, errors.IsMalformedOutput(ValidateRisk("scorer", -0.01)))
	assert.True(t, errors.IsMalformedOutput(ValidateRisk("scorer", 1.01)))
	assert.True(t, errors.IsMalformedOutput(ValidateRisk("scorer", math.NaN())))
}

func TestValidateSpan(t *testing.T) {
	good := clinical.EntitySpan{Text: "metformin", Label: clinical.LabelMedication, Start: 10, End: 19, Confidence: 0.9}
	assert.NoError(t, ValidateSpan("tagger", good, 50))

	beyond := good
	beyond.End = 60
	assert.True(t, errors.IsMalformedOutput(ValidateSpan("tagger", beyond, 50)))

	inverted := good
	inverted.Start, inverted.End = 19, 10
	assert.True(t, errors.IsMalformedOutput(ValidateSpan("tagger", inverted, 50)))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.Equal(t, "abcde...", Excerpt("abcdefghij", 5))
	// Multi-byte text is cut on rune boundaries.
	assert.Equal(t, "héllo...", Excerpt("héllo wörld", 5))
	assert.Equal(t, "whole", Excerpt("whole", 0))
}
