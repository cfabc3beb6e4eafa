// Package risk provides the application-level readmission risk
// operations: single-note scoring, trajectory aggregation, and
// order-preserving batch assessment.
package risk

import (
	"context"
	"strings"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/internal/intelligence/risktraj"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// Service defines the risk scoring operations.
type Service interface {
	// PredictReadmission scores one note.
	PredictReadmission(ctx context.Context, text string) (*Assessment, error)

	// Trajectory scores an ordered note sequence and derives trend and
	// summary statistics.
	Trajectory(ctx context.Context, input *TrajectoryInput) (*clinical.Trajectory, error)

	// BatchAssess scores several independent notes.  Results keep input
	// order; individual failures are reported per slot.
	BatchAssess(ctx context.Context, texts []string) ([]BatchItem, error)
}

// Assessment is the shaped output of one scoring call.
type Assessment struct {
	Risk       float64               `json:"readmission_risk"`
	Category   clinical.RiskCategory `json:"risk_category"`
	Confidence float64               `json:"confidence"`
	AssessedAt time.Time             `json:"assessed_at"`
}

// TrajectoryInput carries an ordered note sequence with optional
// timestamps.  The timestamp list may be shorter than the note list;
// unmatched notes simply carry no timestamp.
type TrajectoryInput struct {
	Notes      []string    `json:"notes"`
	Timestamps []time.Time `json:"timestamps,omitempty"`
}

// BatchItem is one note's outcome within a batch assessment.
type BatchItem struct {
	Index      int         `json:"index"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type service struct {
	aggregator  *risktraj.Aggregator
	concurrency int
	logger      logging.Logger
}

// NewService builds the risk service.  concurrency bounds batch fan-out.
func NewService(aggregator *risktraj.Aggregator, concurrency int, logger logging.Logger) Service {
	return &service{
		aggregator:  aggregator,
		concurrency: concurrency,
		logger:      logger.Named("risk"),
	}
}

func (s *service) PredictReadmission(ctx context.Context, text string) (*Assessment, error) {
	assessment, err := s.aggregator.Score(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Assessment{
		Risk:       assessment.Risk,
		Category:   assessment.Category,
		Confidence: assessment.Confidence,
		AssessedAt: time.Now().UTC(),
	}, nil
}

func (s *service) Trajectory(ctx context.Context, input *TrajectoryInput) (*clinical.Trajectory, error) {
	if input == nil || len(input.Notes) == 0 {
		return nil, errors.InvalidInput("risk_trajectory", "no notes provided")
	}
	traj, err := s.aggregator.Trajectory(ctx, input.Notes, input.Timestamps)
	if err != nil {
		return nil, err
	}
	s.logger.Info("trajectory computed",
		logging.Int("points", len(traj.Points)),
		logging.String("trend", string(traj.Trend)))
	return &traj, nil
}

func (s *service) BatchAssess(ctx context.Context, texts []string) ([]BatchItem, error) {
	if len(texts) == 0 {
		return nil, errors.InvalidInput("batch_assess", "no notes provided")
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errors.InvalidInput("batch_assess", "empty note in batch")
		}
	}

	results := common.RunOrdered(ctx, texts, s.concurrency,
		func(ctx context.Context, text string) (*Assessment, error) {
			return s.PredictReadmission(ctx, text)
		})

	items := make([]BatchItem, len(results))
	for i, r := range results {
		items[i] = BatchItem{Index: i, Assessment: r.Result}
		if r.Error != nil {
			items[i].Assessment = nil
			items[i].Error = r.Error.Error()
		}
	}
	return items, nil
}
