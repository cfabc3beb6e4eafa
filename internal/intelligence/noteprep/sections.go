package noteprep

import (
	"regexp"
	"strings"

	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// sectionHeader locates the first occurrence of one section's header
// synonyms.  Each section is searched independently of the others, so
// out-of-order or repeated headers in the source each get captured; the
// result map can therefore contain overlapping bodies.  Downstream
// consumers rely on that redundancy, so it stays.
type sectionHeader struct {
	name clinical.SectionName
	re   *regexp.Regexp
}

var sectionHeaders = []sectionHeader{
	{clinical.SectionChiefComplaint, regexp.MustCompile(`(?i)(?:chief complaint|cc):`)},
	{clinical.SectionHistoryPresentIllness, regexp.MustCompile(`(?i)(?:history of present illness|hpi):`)},
	{clinical.SectionPastMedicalHistory, regexp.MustCompile(`(?i)(?:past medical history|pmh):`)},
	{clinical.SectionMedications, regexp.MustCompile(`(?i)(?:medications|meds):`)},
	{clinical.SectionAllergies, regexp.MustCompile(`(?i)(?:allergies|nkda):`)},
	{clinical.SectionSocialHistory, regexp.MustCompile(`(?i)(?:social history|sh):`)},
	{clinical.SectionFamilyHistory, regexp.MustCompile(`(?i)(?:family history|fh):`)},
	{clinical.SectionReviewOfSystems, regexp.MustCompile(`(?i)(?:review of systems|ros):`)},
	{clinical.SectionPhysicalExam, regexp.MustCompile(`(?i)(?:physical exam|pe|examination):`)},
	{clinical.SectionAssessmentPlan, regexp.MustCompile(`(?i)(?:assessment and plan|a&p|assessment|plan):`)},
	{clinical.SectionImpression, regexp.MustCompile(`(?i)(?:impression|imp):`)},
}

// nextHeaderRe marks where a section body ends: a newline followed by a
// word-character run and a colon (any header-shaped line, recognized or
// not).
var nextHeaderRe = regexp.MustCompile(`\n\w+:`)

// SectionExtractor splits clinical notes into the canonical named
// sections.  It works on raw or normalized text alike since it only keys
// off `header:` markers.
type SectionExtractor struct{}

// NewSectionExtractor builds a SectionExtractor.
func NewSectionExtractor() *SectionExtractor {
	return &SectionExtractor{}
}

// Extract returns the sections found in text.  Only sections whose body is
// non-empty after trimming appear in the result; missing headers are
// omitted, never present with empty values.
func (e *SectionExtractor) Extract(text string) clinical.Sections {
	sections := make(clinical.Sections)

	for _, h := range sectionHeaders {
		loc := h.re.FindStringIndex(text)
		if loc == nil {
			continue
		}

		rest := text[loc[1]:]
		if bound := nextHeaderRe.FindStringIndex(rest); bound != nil {
			rest = rest[:bound[0]]
		}

		body := strings.TrimSpace(rest)
		if body != "" {
			sections[h.name] = body
		}
	}
	return sections
}
