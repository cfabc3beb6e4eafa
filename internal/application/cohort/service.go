// Package cohort provides criteria-based patient group identification
// over a patient registry, semantic similar-patient lookup and cohort
// statistics.  Semantic criteria are evaluated through the similarity
// ranker.
package cohort

import (
	"context"
	"sort"
	"strings"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/casesim"
	"github.com/clinsignal/clinsignal/pkg/errors"
)

// Patient is one registry entry considered for cohort membership.
type Patient struct {
	ID           string   `json:"patient_id"`
	Age          int      `json:"age"`
	Gender       string   `json:"gender"`
	Conditions   []string `json:"conditions"`
	Medications  []string `json:"medications"`
	ClinicalNote string   `json:"clinical_summary"`
}

// defaultRegistry is the illustrative in-process patient set.  A real
// deployment would plug a record store in behind Registry.
var defaultRegistry = []Patient{
	{
		ID: "P001", Age: 65, Gender: "male",
		Conditions:   []string{"diabetes mellitus type 2", "hypertension", "coronary artery disease"},
		Medications:  []string{"metformin", "lisinopril", "atorvastatin"},
		ClinicalNote: "65-year-old male with well-controlled diabetes and hypertension. Recent cardiac catheterization showed stable CAD.",
	},
	{
		ID: "P002", Age: 72, Gender: "female",
		Conditions:   []string{"heart failure", "atrial fibrillation", "diabetes mellitus type 2"},
		Medications:  []string{"metoprolol", "warfarin", "furosemide", "metformin"},
		ClinicalNote: "72-year-old female with heart failure with reduced ejection fraction and diabetes.",
	},
	{
		ID: "P003", Age: 58, Gender: "male",
		Conditions:   []string{"COPD", "diabetes mellitus type 2", "hypertension"},
		Medications:  []string{"albuterol", "metformin", "amlodipine"},
		ClinicalNote: "58-year-old male with moderate COPD and diabetes. Recent exacerbation required hospitalization.",
	},
	{
		ID: "P004", Age: 45, Gender: "female",
		Conditions:   []string{"asthma", "allergic rhinitis"},
		Medications:  []string{"fluticasone", "albuterol", "loratadine"},
		ClinicalNote: "45-year-old female with well-controlled asthma and seasonal allergies.",
	},
	{
		ID: "P005", Age: 80, Gender: "male",
		Conditions:   []string{"dementia", "hypertension", "diabetes mellitus type 2"},
		Medications:  []string{"donepezil", "metformin", "lisinopril"},
		ClinicalNote: "80-year-old male with moderate dementia and multiple comorbidities.",
	},
}

// Registry supplies the patients screened for cohort membership.
type Registry interface {
	Patients(ctx context.Context) ([]Patient, error)
}

// StaticRegistry is a Registry over a fixed slice.
type StaticRegistry []Patient

// Patients returns the fixed registry.
func (r StaticRegistry) Patients(context.Context) ([]Patient, error) { return r, nil }

// DefaultRegistry returns the built-in demonstration registry.
func DefaultRegistry() Registry { return StaticRegistry(defaultRegistry) }

// Criteria describes a cohort.  Structured criteria match by range or
// case-insensitive substring; TextCriterion matches semantically against
// each patient's clinical note.
type Criteria struct {
	AgeMin        *int     `json:"age_min,omitempty"`
	AgeMax        *int     `json:"age_max,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Medications   []string `json:"medications,omitempty"`
	TextCriterion string   `json:"text_criterion,omitempty"`
}

func (c *Criteria) empty() bool {
	return c.AgeMin == nil && c.AgeMax == nil && c.Gender == "" &&
		len(c.Conditions) == 0 && len(c.Medications) == 0 && c.TextCriterion == ""
}

// semanticThreshold is the minimum similarity for TextCriterion matches.
const semanticThreshold = 0.6

// Result is the shaped output of a cohort identification.
type Result struct {
	Criteria Criteria  `json:"cohort_criteria"`
	Screened int       `json:"total_patients_screened"`
	Matched  int       `json:"matching_patients"`
	Patients []Patient `json:"patients"`
}

// SimilarInput describes the target patient for a similarity lookup.
// Summary and Conditions are combined into one semantic query.
type SimilarInput struct {
	Summary    string   `json:"patient_summary"`
	Conditions []string `json:"conditions,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// SimilarPatient is one registry patient ranked against the target.
type SimilarPatient struct {
	PatientID     string  `json:"patient_id"`
	Reference     string  `json:"patient_reference"`
	Similarity    float64 `json:"similarity"`
	MatchStrength string  `json:"match_strength"`
	Summary       string  `json:"clinical_summary"`
}

// SimilarResult is the shaped output of a similar-patient lookup.
type SimilarResult struct {
	Patients []SimilarPatient `json:"similar_patients"`
	Screened int              `json:"total_screened"`
}

// similarDefaults for FindSimilar: result cap and the similarity floor a
// patient must clear to be reported at all.
const (
	defaultSimilarLimit = 10
	similarThreshold    = 0.3
	strongMatchFloor    = 0.7
	moderateMatchFloor  = 0.5
)

// AgeStats summarizes the age spread of a cohort.
type AgeStats struct {
	Mean float64 `json:"mean"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
}

// Demographics carries the distributional summaries of a cohort.
type Demographics struct {
	Age    AgeStats           `json:"age_distribution"`
	Gender map[string]float64 `json:"gender_distribution"`
}

// ConditionFrequency is one condition with the fraction of the cohort
// carrying it.
type ConditionFrequency struct {
	Condition string  `json:"condition"`
	Frequency float64 `json:"frequency"`
}

// Analysis is the statistical profile of an identified cohort.
type Analysis struct {
	CohortSize       int                  `json:"cohort_size"`
	PatientIDs       []string             `json:"patient_ids"`
	Demographics     Demographics         `json:"demographics"`
	CommonConditions []ConditionFrequency `json:"common_conditions"`
	UniqueConditions int                  `json:"total_unique_conditions"`
}

// maxCommonConditions bounds the reported condition list.
const maxCommonConditions = 10

// Service identifies and profiles patient cohorts.
type Service interface {
	Identify(ctx context.Context, criteria *Criteria) (*Result, error)

	// FindSimilar ranks registry patients semantically against a target
	// patient's summary and conditions.
	FindSimilar(ctx context.Context, input *SimilarInput) (*SimilarResult, error)

	// Analyze computes demographic and condition statistics for the
	// registry patients with the given IDs.
	Analyze(ctx context.Context, patientIDs []string) (*Analysis, error)
}

type service struct {
	registry Registry
	ranker   *casesim.Ranker
	logger   logging.Logger
}

// NewService builds the cohort service.
func NewService(registry Registry, ranker *casesim.Ranker, logger logging.Logger) Service {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &service{registry: registry, ranker: ranker, logger: logger.Named("cohort")}
}

func (s *service) Identify(ctx context.Context, criteria *Criteria) (*Result, error) {
	if criteria == nil || criteria.empty() {
		return nil, errors.InvalidInput("cohort_identification", "no cohort criteria provided")
	}

	patients, err := s.registry.Patients(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]Patient, 0, len(patients))
	for _, p := range patients {
		ok, err := s.matches(ctx, p, criteria)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, p)
		}
	}

	s.logger.Info("cohort identified",
		logging.Int("screened", len(patients)),
		logging.Int("matched", len(matched)))
	return &Result{
		Criteria: *criteria,
		Screened: len(patients),
		Matched:  len(matched),
		Patients: matched,
	}, nil
}

func (s *service) matches(ctx context.Context, p Patient, c *Criteria) (bool, error) {
	if c.AgeMin != nil && p.Age < *c.AgeMin {
		return false, nil
	}
	if c.AgeMax != nil && p.Age > *c.AgeMax {
		return false, nil
	}
	if c.Gender != "" && !strings.EqualFold(p.Gender, c.Gender) {
		return false, nil
	}
	if !containsAll(p.Conditions, c.Conditions) {
		return false, nil
	}
	if !containsAll(p.Medications, c.Medications) {
		return false, nil
	}

	if c.TextCriterion != "" {
		// The structured criteria run first so the embedding oracle is
		// only consulted for patients still in play.
		ranked, err := s.ranker.Rank(ctx, c.TextCriterion, []string{p.ClinicalNote}, 1)
		if err != nil {
			return false, err
		}
		if len(casesim.FilterByThreshold(ranked, semanticThreshold)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *service) FindSimilar(ctx context.Context, input *SimilarInput) (*SimilarResult, error) {
	if input == nil || strings.TrimSpace(input.Summary) == "" {
		return nil, errors.InvalidInput("find_similar_patients", "empty patient summary")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	query := input.Summary
	if len(input.Conditions) > 0 {
		query += " " + strings.Join(input.Conditions, " ")
	}

	patients, err := s.registry.Patients(ctx)
	if err != nil {
		return nil, err
	}
	notes := make([]string, len(patients))
	for i, p := range patients {
		notes[i] = p.ClinicalNote
	}

	ranked, err := s.ranker.Rank(ctx, query, notes, limit)
	if err != nil {
		return nil, err
	}
	ranked = casesim.FilterByThreshold(ranked, similarThreshold)

	out := make([]SimilarPatient, 0, len(ranked))
	for _, res := range ranked {
		p := patients[res.Index]
		out = append(out, SimilarPatient{
			PatientID:     p.ID,
			Reference:     "Patient/" + p.ID,
			Similarity:    res.Score,
			MatchStrength: matchStrength(res.Score),
			Summary:       p.ClinicalNote,
		})
	}

	s.logger.Info("similar patients ranked",
		logging.Int("screened", len(patients)),
		logging.Int("matched", len(out)))
	return &SimilarResult{Patients: out, Screened: len(patients)}, nil
}

// matchStrength bands a similarity score for human consumption.
func matchStrength(score float64) string {
	switch {
	case score > strongMatchFloor:
		return "high"
	case score > moderateMatchFloor:
		return "medium"
	default:
		return "low"
	}
}

func (s *service) Analyze(ctx context.Context, patientIDs []string) (*Analysis, error) {
	if len(patientIDs) == 0 {
		return nil, errors.InvalidInput("cohort_analysis", "no patient ids provided")
	}

	patients, err := s.registry.Patients(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}

	cohort := make([]Patient, 0, len(patientIDs))
	resolved := make([]string, 0, len(patientIDs))
	for _, id := range patientIDs {
		p, ok := byID[id]
		if !ok {
			return nil, errors.InvalidInput("cohort_analysis", "unknown patient id: "+id)
		}
		cohort = append(cohort, p)
		resolved = append(resolved, p.ID)
	}

	analysis := &Analysis{
		CohortSize: len(cohort),
		PatientIDs: resolved,
		Demographics: Demographics{
			Gender: make(map[string]float64),
		},
	}

	ageSum := 0
	analysis.Demographics.Age.Min = cohort[0].Age
	analysis.Demographics.Age.Max = cohort[0].Age
	genderCounts := make(map[string]int)
	conditionCounts := make(map[string]int)
	for _, p := range cohort {
		ageSum += p.Age
		if p.Age < analysis.Demographics.Age.Min {
			analysis.Demographics.Age.Min = p.Age
		}
		if p.Age > analysis.Demographics.Age.Max {
			analysis.Demographics.Age.Max = p.Age
		}
		if g := strings.ToLower(p.Gender); g != "" {
			genderCounts[g]++
		}
		for _, c := range p.Conditions {
			conditionCounts[strings.ToLower(c)]++
		}
	}
	analysis.Demographics.Age.Mean = float64(ageSum) / float64(len(cohort))
	for g, n := range genderCounts {
		analysis.Demographics.Gender[g] = float64(n) / float64(len(cohort))
	}

	analysis.UniqueConditions = len(conditionCounts)
	freqs := make([]ConditionFrequency, 0, len(conditionCounts))
	for c, n := range conditionCounts {
		freqs = append(freqs, ConditionFrequency{
			Condition: c,
			Frequency: float64(n) / float64(len(cohort)),
		})
	}
	// Most frequent first; ties break alphabetically so the output is
	// deterministic.
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Frequency != freqs[j].Frequency {
			return freqs[i].Frequency > freqs[j].Frequency
		}
		return freqs[i].Condition < freqs[j].Condition
	})
	if len(freqs) > maxCommonConditions {
		freqs = freqs[:maxCommonConditions]
	}
	analysis.CommonConditions = freqs

	s.logger.Info("cohort analyzed",
		logging.Int("cohort_size", analysis.CohortSize),
		logging.Int("unique_conditions", analysis.UniqueConditions))
	return analysis, nil
}

// containsAll reports whether every required term appears as a substring
// of the joined haystack, case-insensitively.
func containsAll(haystack, required []string) bool {
	if len(required) == 0 {
		return true
	}
	joined := strings.ToLower(strings.Join(haystack, " "))
	for _, term := range required {
		if !strings.Contains(joined, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
