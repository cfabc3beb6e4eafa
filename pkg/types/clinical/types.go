// Package clinical defines the shared data types produced by the clinsignal
// text pipeline: normalized notes, section maps, entity spans, similarity
// hits, and risk trajectories.  These are plain data carriers; all behaviour
// lives in the intelligence and application layers.
package clinical

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sections
// ─────────────────────────────────────────────────────────────────────────────

// SectionName identifies one of the canonical clinical note sections.
type SectionName string

const (
	SectionChiefComplaint        SectionName = "chief_complaint"
	SectionHistoryPresentIllness SectionName = "history_present_illness"
	SectionPastMedicalHistory    SectionName = "past_medical_history"
	SectionMedications           SectionName = "medications"
	SectionAllergies             SectionName = "allergies"
	SectionSocialHistory         SectionName = "social_history"
	SectionFamilyHistory         SectionName = "family_history"
	SectionReviewOfSystems       SectionName = "review_of_systems"
	SectionPhysicalExam          SectionName = "physical_exam"
	SectionAssessmentPlan        SectionName = "assessment_plan"
	SectionImpression            SectionName = "impression"
)

// SectionNames lists every canonical section in documentation order.
var SectionNames = []SectionName{
	SectionChiefComplaint,
	SectionHistoryPresentIllness,
	SectionPastMedicalHistory,
	SectionMedications,
	SectionAllergies,
	SectionSocialHistory,
	SectionFamilyHistory,
	SectionReviewOfSystems,
	SectionPhysicalExam,
	SectionAssessmentPlan,
	SectionImpression,
}

// Sections maps section names to extracted body text.  Absent sections are
// omitted rather than present with empty values, so callers must use the
// two-value map lookup.
type Sections map[SectionName]string

// ─────────────────────────────────────────────────────────────────────────────
// Entity spans
// ─────────────────────────────────────────────────────────────────────────────

// EntityLabel classifies an extracted clinical entity.  The rule-based
// producer emits only the four canonical labels below; model-backed
// producers may emit additional labels which are carried through unchanged.
type EntityLabel string

const (
	LabelMedication EntityLabel = "MEDICATION"
	LabelCondition  EntityLabel = "CONDITION"
	LabelProcedure  EntityLabel = "PROCEDURE"
	LabelLabValue   EntityLabel = "LAB_VALUE"
)

// EntitySpan is a labelled character range within a specific text.  Offsets
// are indices into the exact text that was scored and are meaningless
// against any other string.
type EntitySpan struct {
	Text       string      `json:"text"`
	Label      EntityLabel `json:"label"`
	Start      int         `json:"start"`
	End        int         `json:"end"`
	Confidence float64     `json:"confidence"`
}

// Validate checks the span's structural invariants: start < end and
// confidence within [0, 1].
func (s EntitySpan) Validate() error {
	if s.Start < 0 || s.End <= s.Start {
		return fmt.Errorf("entity span offsets invalid: start=%d end=%d", s.Start, s.End)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("entity span confidence out of range: %g", s.Confidence)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Similarity
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityResult is one ranked candidate from a semantic case search.
// Index refers to the candidate's position in the caller-supplied slice.
type SimilarityResult struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float64 `json:"similarity_score"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Risk trajectories
// ─────────────────────────────────────────────────────────────────────────────

// RiskCategory buckets a risk score.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// Trend classifies the direction of a risk trajectory.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// TrajectoryPoint is the risk assessment of a single note within an ordered
// sequence.  Index is the 0-based position in the input sequence; Timestamp
// is nil when the caller supplied no timestamp for that position.
type TrajectoryPoint struct {
	Index      int          `json:"index"`
	Risk       float64      `json:"risk_score"`
	Category   RiskCategory `json:"risk_category"`
	Timestamp  *time.Time   `json:"timestamp,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
}

// Trajectory is an ordered sequence of per-note risk assessments plus
// derived trend and summary statistics.
type Trajectory struct {
	Points  []TrajectoryPoint `json:"trajectory"`
	Trend   Trend             `json:"trend"`
	Current float64           `json:"current_risk"`
	Max     float64           `json:"max_risk"`
	Min     float64           `json:"min_risk"`
}
