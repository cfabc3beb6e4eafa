// Package noteprep implements the deterministic text stages of the pipeline:
// clinical note normalization and section extraction.  Everything here is a
// pure function over its input; the model-backed stages live in clinextract,
// casesim and risktraj.
package noteprep

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ─────────────────────────────────────────────────────────────────────────────
// Normalizer configuration
// ─────────────────────────────────────────────────────────────────────────────

// NormalizerConfig controls the optional stages of normalization.
type NormalizerConfig struct {
	// MaskPHI enables replacement of PHI-shaped substrings (SSNs, phone
	// numbers, emails, dates) with bracketed placeholder tokens.
	MaskPHI bool `mapstructure:"mask_phi"`
}

// DefaultNormalizerConfig returns the production defaults.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{MaskPHI: true}
}

// Normalizer rewrites raw clinical text into a canonical lowercase form
// suitable for downstream extraction and embedding.  It is stateless and
// safe for concurrent use.
type Normalizer struct {
	cfg NormalizerConfig
}

// NewNormalizer builds a Normalizer with the given configuration.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixed tables
// ─────────────────────────────────────────────────────────────────────────────

// abbreviations maps clinical shorthand tokens to their expansions.
// Lookup happens after lowercasing, so keys are lowercase.
var abbreviations = map[string]string{
	"pt":    "patient",
	"pts":   "patients",
	"hx":    "history",
	"dx":    "diagnosis",
	"tx":    "treatment",
	"rx":    "prescription",
	"sx":    "symptoms",
	"w/":    "with",
	"w/o":   "without",
	"c/o":   "complains of",
	"r/o":   "rule out",
	"s/p":   "status post",
	"nkda":  "no known drug allergies",
	"sob":   "shortness of breath",
	"cp":    "chest pain",
	"abd":   "abdomen",
	"ext":   "extremities",
	"neuro": "neurological",
	"psych": "psychiatric",
	"gi":    "gastrointestinal",
	"gu":    "genitourinary",
	"cv":    "cardiovascular",
	"resp":  "respiratory",
	"ent":   "ear nose throat",
	"heent": "head eyes ears nose throat",
	"ms":    "musculoskeletal",
	"derm":  "dermatological",
}

// phiPattern pairs a detector with its placeholder.  Order matters: earlier
// patterns claim their matches before later ones run.
type phiPattern struct {
	re          *regexp.Regexp
	placeholder string
}

// Placeholders are lowercase so a second normalization pass leaves them
// untouched (case folding must not corrupt already-masked text).
var phiPatterns = []phiPattern{
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[ssn]"},
	{regexp.MustCompile(`\b\d{10,11}\b`), "[phone]"},
	{regexp.MustCompile(`\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`), "[email]"},
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), "[date]"},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "[date]"},
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Longer unit tokens come first so the alternation prefers them.
	unitRe = regexp.MustCompile(`(\d)(mg/dl|mmol/l|meq/l|pg/ml|ng/ml|mmhg|mcg|mg|kg|ml|celsius|fahrenheit|units|iu|bpm|rpm|g|l)\b`)

	// Everything outside the allow-list (word characters, whitespace, and
	// a fixed clinical punctuation set) becomes a space.
	disallowedRe = regexp.MustCompile(`[^\w\s.,;:!?+\-()\[\]/%]`)

	repeatDotRe   = regexp.MustCompile(`[.]{2,}`)
	repeatCommaRe = regexp.MustCompile(`[,]{2,}`)

	trailingPunct = ".,;:!?\"'`)]}"
)

// ─────────────────────────────────────────────────────────────────────────────
// Normalization
// ─────────────────────────────────────────────────────────────────────────────

// Normalize applies the full rewrite pipeline in fixed order: Unicode NFC,
// lowercase, whitespace collapse, PHI masking, abbreviation expansion, unit
// separation, allow-list filtering, punctuation dedup, trim.  Empty or
// whitespace-only input yields an empty string; Normalize never fails.
// The result is idempotent: normalizing already-normalized text returns it
// unchanged.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = norm.NFC.String(text)
	text = strings.ToLower(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	if n.cfg.MaskPHI {
		for _, p := range phiPatterns {
			text = p.re.ReplaceAllString(text, p.placeholder)
		}
	}

	text = expandAbbreviations(text)
	text = unitRe.ReplaceAllString(text, "$1 $2")
	text = disallowedRe.ReplaceAllString(text, " ")
	text = repeatDotRe.ReplaceAllString(text, ".")
	text = repeatCommaRe.ReplaceAllString(text, ",")
	text = whitespaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// expandAbbreviations rewrites each whitespace-delimited token through the
// abbreviation table.  The raw token is tried first (shorthands like "w/"
// end in punctuation themselves), then the token with trailing punctuation
// stripped, re-attaching the stripped suffix to the expansion.
func expandAbbreviations(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))

	for _, word := range words {
		if exp, ok := abbreviations[word]; ok {
			out = append(out, exp)
			continue
		}
		clean := strings.TrimRight(word, trailingPunct)
		if exp, ok := abbreviations[clean]; ok && clean != "" {
			out = append(out, exp+word[len(clean):])
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding preparation and sentence splitting
// ─────────────────────────────────────────────────────────────────────────────

var (
	headerLineRe = regexp.MustCompile(`(?m)^[a-z\s]+:\s*`)
	sentenceRe   = regexp.MustCompile(`[.!?]+`)
)

// CleanForEmbedding normalizes text and additionally strips section header
// prefixes and sub-word artifacts, producing a compact string for the
// embedding oracle.
func (n *Normalizer) CleanForEmbedding(text string) string {
	text = n.Normalize(text)
	text = headerLineRe.ReplaceAllString(text, "")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if len(w) > 1 {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// SplitSentences breaks text on sentence-ending punctuation and drops
// fragments too short to carry clinical meaning.
func (n *Normalizer) SplitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 10 {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
