package clinextract

import (
	"context"
	"regexp"

	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// ruleConfidence is assigned to every pattern-matched span.  Model spans
// carry their own softmax confidence; during the merge pass the higher
// value wins, so rule spans yield to confident model predictions.
const ruleConfidence = 0.8

// rulePattern binds one compiled expression to the label it emits.
type rulePattern struct {
	label clinical.EntityLabel
	re    *regexp.Regexp
}

// rulePatterns is the fixed extraction table.  Patterns within one label
// overlap freely; the merge pass resolves duplicates.
var rulePatterns = []rulePattern{
	{clinical.LabelMedication, regexp.MustCompile(`(?i)\b(?:mg|mcg|g|ml|units?)\b`)},
	{clinical.LabelMedication, regexp.MustCompile(`(?i)\b\w+(?:cillin|mycin|pril|sartan|statin)\b`)},
	{clinical.LabelMedication, regexp.MustCompile(`(?i)\b(?:aspirin|metformin|insulin|warfarin|heparin)\b`)},

	{clinical.LabelCondition, regexp.MustCompile(`(?i)\b(?:diabetes|hypertension|pneumonia|sepsis|MI|CHF)\b`)},
	{clinical.LabelCondition, regexp.MustCompile(`(?i)\b(?:acute|chronic)\s+\w+`)},
	{clinical.LabelCondition, regexp.MustCompile(`(?i)\b\w+(?:itis|osis|pathy|trophy)\b`)},

	{clinical.LabelProcedure, regexp.MustCompile(`(?i)\b(?:surgery|operation|procedure|biopsy|catheter)\b`)},
	{clinical.LabelProcedure, regexp.MustCompile(`(?i)\b(?:CT|MRI|X-ray|ultrasound|EKG|ECG)\b`)},
	{clinical.LabelProcedure, regexp.MustCompile(`(?i)\b\w+(?:ectomy|otomy|plasty|scopy)\b`)},

	{clinical.LabelLabValue, regexp.MustCompile(`(?i)\b(?:WBC|RBC|Hgb|Hct|PLT)\s*:?\s*\d+\.?\d*`)},
	{clinical.LabelLabValue, regexp.MustCompile(`(?i)\b(?:glucose|creatinine|BUN|sodium|potassium)\s*:?\s*\d+\.?\d*`)},
	{clinical.LabelLabValue, regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:mg/dL|mmol/L|mEq/L)\b`)},
}

// RuleProducer emits entity spans from the fixed pattern table.  It needs
// no model and never fails, making it the degradation floor when the
// span-tagging oracle is down.
type RuleProducer struct{}

// NewRuleProducer builds a RuleProducer.
func NewRuleProducer() *RuleProducer {
	return &RuleProducer{}
}

// Produce scans text with every pattern and emits one span per
// non-overlapping match at the fixed rule confidence.
func (p *RuleProducer) Produce(_ context.Context, text string) ([]clinical.EntitySpan, error) {
	var spans []clinical.EntitySpan
	for _, rp := range rulePatterns {
		for _, loc := range rp.re.FindAllStringIndex(text, -1) {
			spans = append(spans, clinical.EntitySpan{
				Text:       text[loc[0]:loc[1]],
				Label:      rp.label,
				Start:      loc[0],
				End:        loc[1],
				Confidence: ruleConfidence,
			})
		}
	}
	return spans, nil
}
