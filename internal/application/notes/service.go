// Package notes provides the application-level service for the note
// processing operations: full pipeline runs and standalone entity
// extraction.  It sits between the HTTP/CLI handlers and the intelligence
// layer.
package notes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/clinextract"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/internal/intelligence/noteprep"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// Service defines the note processing operations.
type Service interface {
	// ProcessNote runs the full pipeline on one note: normalization,
	// section extraction and entity extraction.
	ProcessNote(ctx context.Context, input *ProcessInput) (*ProcessResult, error)

	// ExtractEntities extracts merged entity spans from raw note text.
	ExtractEntities(ctx context.Context, text string) ([]clinical.EntitySpan, error)

	// ExtractSections splits raw note text into labeled sections without
	// running the rest of the pipeline.
	ExtractSections(ctx context.Context, text string) (*SectionsResult, error)

	// BatchExtract extracts entities from up to MaxBatchTexts notes,
	// isolating per-note failures.
	BatchExtract(ctx context.Context, texts []string) (*BatchExtractResult, error)
}

// MaxBatchTexts caps one BatchExtract request.
const MaxBatchTexts = 50

// SectionsResult is the output of standalone section extraction.
type SectionsResult struct {
	Sections clinical.Sections `json:"sections"`
	Count    int               `json:"section_count"`
}

// BatchExtractItem is the outcome for one note in a batch; exactly one of
// Entities or Error is meaningful.
type BatchExtractItem struct {
	Index    int                   `json:"index"`
	Entities []clinical.EntitySpan `json:"entities"`
	Error    string                `json:"error,omitempty"`
}

// BatchExtractResult aggregates a batch extraction run.
type BatchExtractResult struct {
	Results       []BatchExtractItem `json:"results"`
	Processed     int                `json:"total_processed"`
	TotalEntities int                `json:"total_entities"`
	UniqueLabels  []string           `json:"unique_entity_types"`
	BatchSize     int                `json:"batch_size"`
}

// ProcessInput carries one note through the pipeline.
type ProcessInput struct {
	Text string `json:"text"`
	// SkipEntities leaves the entity list empty; normalization and
	// sections still run.
	SkipEntities bool `json:"skip_entities,omitempty"`
}

// ProcessResult is the structured output for one processed note.
type ProcessResult struct {
	NoteID      string                `json:"note_id"`
	Normalized  string                `json:"normalized_text"`
	Sections    clinical.Sections     `json:"sections"`
	Entities    []clinical.EntitySpan `json:"entities"`
	ProcessedAt time.Time             `json:"processed_at"`
}

type service struct {
	normalizer  *noteprep.Normalizer
	sections    *noteprep.SectionExtractor
	extractor   *clinextract.Extractor
	concurrency int
	logger      logging.Logger
}

// NewService builds the note processing service.  concurrency bounds
// parallel extraction calls within one batch.
func NewService(normalizer *noteprep.Normalizer, sections *noteprep.SectionExtractor, extractor *clinextract.Extractor, concurrency int, logger logging.Logger) Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &service{
		normalizer:  normalizer,
		sections:    sections,
		extractor:   extractor,
		concurrency: concurrency,
		logger:      logger.Named("notes"),
	}
}

func (s *service) ProcessNote(ctx context.Context, input *ProcessInput) (*ProcessResult, error) {
	if input == nil || strings.TrimSpace(input.Text) == "" {
		return nil, errors.InvalidInput("process_note", "empty note text")
	}

	normalized := s.normalizer.Normalize(input.Text)
	sections := s.sections.Extract(input.Text)

	result := &ProcessResult{
		NoteID:      uuid.NewString(),
		Normalized:  normalized,
		Sections:    sections,
		Entities:    []clinical.EntitySpan{},
		ProcessedAt: time.Now().UTC(),
	}

	if !input.SkipEntities {
		// Spans are extracted against the normalized text; their offsets
		// refer to it, not to the raw input.
		entities, err := s.extractor.Extract(ctx, normalized)
		if err != nil {
			return nil, err
		}
		result.Entities = entities
	}

	s.logger.Info("note processed",
		logging.String("note_id", result.NoteID),
		logging.Int("sections", len(sections)),
		logging.Int("entities", len(result.Entities)))
	return result, nil
}

func (s *service) ExtractEntities(ctx context.Context, text string) ([]clinical.EntitySpan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidInput("extract_entities", "empty note text")
	}
	return s.extractor.Extract(ctx, text)
}

func (s *service) ExtractSections(_ context.Context, text string) (*SectionsResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidInput("extract_sections", "empty note text")
	}
	sections := s.sections.Extract(text)
	return &SectionsResult{Sections: sections, Count: len(sections)}, nil
}

func (s *service) BatchExtract(ctx context.Context, texts []string) (*BatchExtractResult, error) {
	if len(texts) == 0 {
		return nil, errors.InvalidInput("batch_extract", "no texts provided")
	}
	if len(texts) > MaxBatchTexts {
		return nil, errors.InvalidInput("batch_extract",
			fmt.Sprintf("batch size %d exceeds maximum of %d", len(texts), MaxBatchTexts))
	}

	outcomes := common.RunOrdered(ctx, texts, s.concurrency,
		func(ctx context.Context, text string) ([]clinical.EntitySpan, error) {
			if strings.TrimSpace(text) == "" {
				return nil, errors.InvalidInput("batch_extract", "empty note text")
			}
			return s.extractor.Extract(ctx, text)
		})

	result := &BatchExtractResult{
		Results:   make([]BatchExtractItem, len(outcomes)),
		BatchSize: len(texts),
	}
	labels := make(map[string]struct{})
	for i, out := range outcomes {
		item := BatchExtractItem{Index: i, Entities: []clinical.EntitySpan{}}
		if out.Error != nil {
			item.Error = out.Error.Error()
		} else {
			item.Entities = append(item.Entities, out.Result...)
			result.Processed++
			result.TotalEntities += len(out.Result)
			for _, e := range out.Result {
				labels[string(e.Label)] = struct{}{}
			}
		}
		result.Results[i] = item
	}

	result.UniqueLabels = make([]string, 0, len(labels))
	for label := range labels {
		result.UniqueLabels = append(result.UniqueLabels, label)
	}
	sort.Strings(result.UniqueLabels)

	s.logger.Info("batch extraction complete",
		logging.Int("batch_size", result.BatchSize),
		logging.Int("processed", result.Processed),
		logging.Int("entities", result.TotalEntities))
	return result, nil
}
