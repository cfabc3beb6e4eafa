package clinextract

import (
	"sort"

	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// MergeSpans collapses touching and overlapping spans into non-overlapping
// spans ordered by start position.  The walk keeps a running accumulator:
// when the next span starts at or before the accumulator's end (touching
// counts as overlap), the higher-confidence span's text and label win, and
// the accumulator's end extends to cover both extents regardless of which
// span won.  A single left-to-right pass over start-sorted spans; pairwise
// resolution over all pairs would change results on three-way overlaps.
//
// The input slice is not modified.  The result depends only on the set of
// spans, not their input order.
func MergeSpans(spans []clinical.EntitySpan) []clinical.EntitySpan {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]clinical.EntitySpan, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		// Tie-breaks make the ordering total so the merge result is
		// independent of input order.
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Text < b.Text
	})

	merged := make([]clinical.EntitySpan, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		if next.Start <= current.End {
			end := current.End
			if next.End > end {
				end = next.End
			}
			if next.Confidence > current.Confidence {
				current = next
			}
			current.End = end
		} else {
			merged = append(merged, current)
			current = next
		}
	}
	merged = append(merged, current)
	return merged
}
