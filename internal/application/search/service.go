// Package search provides the application-level semantic case search.  It
// ranks a case corpus against a query note and shapes the results with
// case and patient references.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/casesim"
	"github.com/clinsignal/clinsignal/pkg/errors"
)

// defaultCases is the illustrative in-process case corpus used when no
// corpus accompanies the request.  A production deployment would plug a
// patient record store in behind CaseSource instead.
var defaultCases = []string{
	"Patient with diabetes mellitus type 2, hypertension, and chronic kidney disease",
	"Elderly patient admitted with acute myocardial infarction and heart failure",
	"Young adult with asthma exacerbation and pneumonia",
	"Patient with sepsis secondary to urinary tract infection",
	"Chronic obstructive pulmonary disease with acute exacerbation",
	"Patient with stroke and atrial fibrillation",
	"Diabetic patient with diabetic ketoacidosis",
	"Patient with acute appendicitis requiring surgery",
	"Elderly patient with hip fracture and dementia",
	"Patient with acute pancreatitis and alcohol use disorder",
}

// CaseSource supplies the candidate case summaries for a search.
type CaseSource interface {
	Cases(ctx context.Context) ([]string, error)
}

// StaticCases is a CaseSource over a fixed slice.
type StaticCases []string

// Cases returns the fixed corpus.
func (s StaticCases) Cases(context.Context) ([]string, error) { return s, nil }

// DefaultCaseSource returns the built-in demonstration corpus.
func DefaultCaseSource() CaseSource { return StaticCases(defaultCases) }

// Service defines the semantic search operations.
type Service interface {
	// SearchCases ranks the corpus against the query, keeps the top k,
	// then drops results under the threshold.  Sub-threshold slots are
	// never backfilled from outside the top k.
	SearchCases(ctx context.Context, input *SearchInput) (*SearchResult, error)

	// SearchDocuments ranks a caller-supplied document set.
	SearchDocuments(ctx context.Context, input *DocumentSearchInput) (*SearchResult, error)
}

// SearchInput parameterizes a corpus search.  Zero Limit and nil
// Threshold fall back to the configured defaults; an explicit threshold
// of 0.0 is honored and keeps every non-negative score.
type SearchInput struct {
	Query     string   `json:"query"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// DocumentSearchInput searches caller-supplied documents instead of the
// corpus.
type DocumentSearchInput struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// maxDocuments caps ad-hoc document searches.
const maxDocuments = 1000

// CaseMatch is one ranked search hit.
type CaseMatch struct {
	CaseID             string  `json:"case_id"`
	PatientReference   string  `json:"patient_reference,omitempty"`
	EncounterReference string  `json:"encounter_reference,omitempty"`
	Score              float64 `json:"similarity_score"`
	Summary            string  `json:"case_summary"`
	Rank               int     `json:"rank"`
}

// SearchResult is the shaped output of one search.
type SearchResult struct {
	QueryID   string      `json:"query_id"`
	Results   []CaseMatch `json:"results"`
	Total     int         `json:"total"`
	Threshold float64     `json:"threshold_used"`
}

type service struct {
	ranker           *casesim.Ranker
	source           CaseSource
	defaultTopK      int
	defaultThreshold float64
	logger           logging.Logger
}

// NewService builds the search service.
func NewService(ranker *casesim.Ranker, source CaseSource, defaultTopK int, defaultThreshold float64, logger logging.Logger) Service {
	if source == nil {
		source = DefaultCaseSource()
	}
	return &service{
		ranker:           ranker,
		source:           source,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
		logger:           logger.Named("search"),
	}
}

func (s *service) SearchCases(ctx context.Context, input *SearchInput) (*SearchResult, error) {
	if input == nil || strings.TrimSpace(input.Query) == "" {
		return nil, errors.InvalidInput("search_cases", "empty search query")
	}

	cases, err := s.source.Cases(ctx)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, input.Query, cases, input.Limit, input.Threshold, true)
}

func (s *service) SearchDocuments(ctx context.Context, input *DocumentSearchInput) (*SearchResult, error) {
	if input == nil || strings.TrimSpace(input.Query) == "" {
		return nil, errors.InvalidInput("semantic_search", "empty search query")
	}
	if len(input.Documents) == 0 {
		return nil, errors.InvalidInput("semantic_search", "no documents provided")
	}
	if len(input.Documents) > maxDocuments {
		return nil, errors.InvalidInput("semantic_search",
			fmt.Sprintf("document corpus cannot exceed %d documents", maxDocuments))
	}
	return s.run(ctx, input.Query, input.Documents, input.Limit, input.Threshold, false)
}

func (s *service) run(ctx context.Context, query string, candidates []string, limit int, threshold *float64, withRefs bool) (*SearchResult, error) {
	if limit <= 0 {
		limit = s.defaultTopK
	}
	// nil means "use the default"; a caller-supplied 0.0 is a real
	// threshold and keeps every non-negative score.
	th := s.defaultThreshold
	if threshold != nil {
		th = *threshold
	}

	ranked, err := s.ranker.Rank(ctx, query, candidates, limit)
	if err != nil {
		return nil, err
	}
	filtered := casesim.FilterByThreshold(ranked, th)

	result := &SearchResult{
		QueryID:   uuid.NewString(),
		Results:   make([]CaseMatch, 0, len(filtered)),
		Total:     len(filtered),
		Threshold: th,
	}
	for rank, hit := range filtered {
		match := CaseMatch{
			CaseID:  fmt.Sprintf("case_%d", hit.Index),
			Score:   hit.Score,
			Summary: hit.Text,
			Rank:    rank + 1,
		}
		if withRefs {
			match.PatientReference = fmt.Sprintf("Patient/%d", 1000+hit.Index)
			match.EncounterReference = fmt.Sprintf("Encounter/%d", 2000+hit.Index)
		}
		result.Results = append(result.Results, match)
	}

	s.logger.Info("case search completed",
		logging.String("query_id", result.QueryID),
		logging.Int("candidates", len(candidates)),
		logging.Int("matches", result.Total))
	return result, nil
}
