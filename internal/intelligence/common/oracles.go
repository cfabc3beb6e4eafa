// Package common defines the oracle contracts, batch execution helpers, and
// metrics interfaces shared by the intelligence modules.  The pipeline never
// owns model weights: every model capability is an externally provided,
// read-only oracle injected at construction time.
package common

import (
	"context"
	"fmt"
	"math"

	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// ─────────────────────────────────────────────────────────────────────────────
// Oracle interfaces
// ─────────────────────────────────────────────────────────────────────────────

// Embedder produces dense vector representations of clinical text.  Results
// must be deterministic for identical input and batch-size independent:
// EmbedBatch(texts)[i] equals Embed(texts[i]) for every i, and output order
// always matches input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// SpanTagger produces labelled entity spans with character offsets valid
// against the exact text passed in.  Implementations may return an empty
// slice when the capability is unavailable; hard transport failures are
// surfaced as ErrCodeOracleUnavailable so callers can degrade explicitly.
type SpanTagger interface {
	Tag(ctx context.Context, text string) ([]clinical.EntitySpan, error)
}

// RiskAssessment is the output of a single readmission-risk scoring call.
type RiskAssessment struct {
	Risk       float64               `json:"readmission_risk"`
	Category   clinical.RiskCategory `json:"risk_category"`
	Confidence float64               `json:"confidence"`
}

// RiskScorer scores a clinical note for 30-day readmission risk in [0, 1].
type RiskScorer interface {
	Score(ctx context.Context, text string) (RiskAssessment, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Defensive validation of oracle output
// ─────────────────────────────────────────────────────────────────────────────

// ValidateVector checks an embedding vector against an expected dimension
// (0 skips the dimension check) and rejects NaN and infinite components.
// Violations are reported as ErrCodeMalformedOracleOutput.
func ValidateVector(oracle string, vec []float64, wantDim int) error {
	if len(vec) == 0 {
		return errors.MalformedOutput(oracle, "empty embedding vector")
	}
	if wantDim > 0 && len(vec) != wantDim {
		return errors.MalformedOutput(oracle,
			fmt.Sprintf("embedding dimension mismatch: got %d want %d", len(vec), wantDim))
	}
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.MalformedOutput(oracle, fmt.Sprintf("non-finite component at index %d", i))
		}
	}
	return nil
}

// ValidateRisk checks a risk score for NaN and [0, 1] range violations.
func ValidateRisk(oracle string, risk float64) error {
	if math.IsNaN(risk) || risk < 0 || risk > 1 {
		return errors.MalformedOutput(oracle, "risk score out of [0,1]")
	}
	return nil
}

// ValidateSpan checks an oracle-produced span against the scored text's
// bounds plus the structural span invariants.
func ValidateSpan(oracle string, span clinical.EntitySpan, textLen int) error {
	if err := span.Validate(); err != nil {
		return errors.MalformedOutput(oracle, err.Error())
	}
	if span.End > textLen {
		return errors.MalformedOutput(oracle,
			fmt.Sprintf("span end %d beyond text length %d", span.End, textLen))
	}
	return nil
}

// Excerpt returns at most max characters of text for inclusion in error
// details and log fields, never splitting a UTF-8 sequence.
func Excerpt(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
