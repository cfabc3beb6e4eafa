// Package clinextract extracts labelled clinical entities from note text.
// Two span producers feed a single merge pass: a model-backed producer
// wrapping the span-tagging oracle, and a rule-based producer over a fixed
// pattern table.  The extractor composes both and degrades to rules only
// when the oracle is unreachable.
package clinextract

import (
	"context"
	"strings"
	"time"

	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/internal/intelligence/common"
	"github.com/clinsignal/clinsignal/pkg/errors"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// SpanProducer is one source of candidate entity spans.  Offsets in the
// returned spans are valid only against the exact text passed in.
type SpanProducer interface {
	Produce(ctx context.Context, text string) ([]clinical.EntitySpan, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Model-backed producer
// ─────────────────────────────────────────────────────────────────────────────

// ModelProducer adapts the span-tagging oracle to the SpanProducer
// interface, validating every returned span against the scored text.
type ModelProducer struct {
	tagger common.SpanTagger
}

// NewModelProducer wraps a span-tagging oracle.
func NewModelProducer(tagger common.SpanTagger) *ModelProducer {
	return &ModelProducer{tagger: tagger}
}

// Produce invokes the oracle and rejects malformed output (offsets outside
// the text, confidence out of range) rather than passing corrupt spans
// downstream.
func (p *ModelProducer) Produce(ctx context.Context, text string) ([]clinical.EntitySpan, error) {
	spans, err := p.tagger.Tag(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, s := range spans {
		if err := common.ValidateSpan("span_tagger", s, len(text)); err != nil {
			return nil, err
		}
	}
	return spans, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Extractor
// ─────────────────────────────────────────────────────────────────────────────

// Extractor combines the model and rule producers and merges their output
// into non-overlapping spans.  Stateless; safe for concurrent use.
type Extractor struct {
	model   SpanProducer
	rules   SpanProducer
	logger  logging.Logger
	metrics common.PipelineMetrics
}

// NewExtractor builds an Extractor.  model may be nil, in which case only
// the rule table runs.
func NewExtractor(model SpanProducer, logger logging.Logger, metrics common.PipelineMetrics) *Extractor {
	return &Extractor{
		model:   model,
		rules:   NewRuleProducer(),
		logger:  logger,
		metrics: metrics,
	}
}

// Extract returns the merged entity spans for text.  An unreachable
// span-tagging oracle downgrades the extraction to rule-based-only with a
// warning; malformed oracle output is a hard failure.
func (e *Extractor) Extract(ctx context.Context, text string) ([]clinical.EntitySpan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidInput("extract_entities", "empty text")
	}

	start := time.Now()

	var modelSpans []clinical.EntitySpan
	if e.model != nil {
		spans, err := e.model.Produce(ctx, text)
		switch {
		case err == nil:
			modelSpans = spans
		case errors.IsOracleUnavailable(err):
			e.logger.Warn("span tagger unavailable, falling back to rule-based extraction",
				logging.Err(err))
		default:
			e.metrics.RecordOperation(ctx, "extract_entities", durationMs(start), false)
			return nil, err
		}
	}

	ruleSpans, _ := e.rules.Produce(ctx, text)

	all := make([]clinical.EntitySpan, 0, len(modelSpans)+len(ruleSpans))
	all = append(all, modelSpans...)
	all = append(all, ruleSpans...)
	merged := MergeSpans(all)

	e.metrics.RecordSpanCounts(ctx, len(modelSpans), len(ruleSpans), len(merged))
	e.metrics.RecordOperation(ctx, "extract_entities", durationMs(start), true)
	return merged, nil
}

func durationMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
