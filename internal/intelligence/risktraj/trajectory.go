// Package risktraj scores ordered note sequences for readmission risk and
// derives the patient's risk trajectory: per-note points plus trend and
// summary statistics.
package risktraj

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// Risk category boundaries.
const (
	lowRiskCeiling = 0.3
	highRiskFloor  = 0.7
	trendTolerance = 0.1
)

// Categorize maps a risk score onto the three-way category scale.  Also
// used standalone by the scoring handlers.
func Categorize(risk float64) clinical.RiskCategory {
	switch {
	case risk < lowRiskCeiling:
		return clinical.RiskLow
	case risk < highRiskFloor:
		return clinical.RiskMedium
	default:
		return clinical.RiskHigh
	}
}

// Aggregator turns note sequences into risk trajectories using the
// injected scoring oracle.  Stateless; safe for concurrent use.
type Aggregator struct {
	scorer      common.RiskScorer
	concurrency int
	logger      logging.Logger
	metrics     common.PipelineMetrics
}

// NewAggregator builds an Aggregator.  concurrency bounds the parallel
// scoring fan-out; values below 1 serialize the calls.
func NewAggregator(scorer common.RiskScorer, concurrency int, logger logging.Logger, metrics common.PipelineMetrics) *Aggregator {
	return &Aggregator{scorer: scorer, concurrency: concurrency, logger: logger, metrics: metrics}
}

// Score assesses a single note.  NaN or out-of-range oracle risk is a hard
// failure rather than a corrupt trajectory point.
func (a *Aggregator) Score(ctx context.Context, text string) (common.RiskAssessment, error) {
	if strings.TrimSpace(text) == "" {
		return common.RiskAssessment{}, errors.InvalidInput("predict_readmission", "empty text")
	}

	assessment, err := a.scorer.Score(ctx, text)
	if err != nil {
		return common.RiskAssessment{}, err
	}
	if err := common.ValidateRisk("risk_scorer", assessment.Risk); err != nil {
		return common.RiskAssessment{}, err
	}
	if assessment.Category == "" {
		assessment.Category = Categorize(assessment.Risk)
	}
	return assessment, nil
}

// Trajectory scores each note in input order and derives trend and
// min/max/current statistics.  timestamps may be nil or shorter than
// texts; points without a matching entry simply carry no timestamp.
// Scoring is fanned out internally but points always come back in input
// order, since TrajectoryPoint.Index is positional.  An empty sequence
// is not an error here: it yields an empty trajectory with zero stats
// and a stable trend, leaving rejection of empty requests to callers.
func (a *Aggregator) Trajectory(ctx context.Context, texts []string, timestamps []time.Time) (clinical.Trajectory, error) {
	if len(texts) == 0 {
		return clinical.Trajectory{Trend: clinical.TrendStable}, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return clinical.Trajectory{}, errors.InvalidInput("risk_trajectory",
				fmt.Sprintf("empty note at index %d", i))
		}
	}

	start := time.Now()

	results := common.RunOrdered(ctx, texts, a.concurrency,
		func(ctx context.Context, text string) (common.RiskAssessment, error) {
			return a.Score(ctx, text)
		})
	assessments, err := common.CollectResults(results)
	if err != nil {
		a.metrics.RecordOperation(ctx, "risk_trajectory", sinceMs(start), false)
		return clinical.Trajectory{}, err
	}

	points := make([]clinical.TrajectoryPoint, len(assessments))
	for i, as := range assessments {
		points[i] = clinical.TrajectoryPoint{
			Index:      i,
			Risk:       as.Risk,
			Category:   as.Category,
			Confidence: as.Confidence,
		}
		if i < len(timestamps) {
			ts := timestamps[i]
			points[i].Timestamp = &ts
		}
	}

	traj := clinical.Trajectory{
		Points:  points,
		Trend:   trend(points),
		Current: points[len(points)-1].Risk,
		Max:     riskExtreme(points, math.Max),
		Min:     riskExtreme(points, math.Min),
	}

	a.metrics.RecordOperation(ctx, "risk_trajectory", sinceMs(start), true)
	return traj, nil
}

// trend compares the last point's risk to the first.  Fewer than two
// points, or a first-to-last delta under the tolerance, reads as stable;
// the tolerance is an absolute cutoff, unrelated to the category
// boundaries.
func trend(points []clinical.TrajectoryPoint) clinical.Trend {
	if len(points) < 2 {
		return clinical.TrendStable
	}
	first := points[0].Risk
	last := points[len(points)-1].Risk
	if math.Abs(last-first) < trendTolerance {
		return clinical.TrendStable
	}
	if last > first {
		return clinical.TrendIncreasing
	}
	return clinical.TrendDecreasing
}

func riskExtreme(points []clinical.TrajectoryPoint, pick func(float64, float64) float64) float64 {
	if len(points) == 0 {
		return 0
	}
	out := points[0].Risk
	for _, p := range points[1:] {
		out = pick(out, p.Risk)
	}
	return out
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
