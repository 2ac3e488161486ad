package validation

import (
	"Pantry-Pipeline-Backend/entities"
)

// DefaultConfidenceThreshold is the cutoff above which a detection is
// considered confident enough for the rubber-stamp pass.
const DefaultConfidenceThreshold = 0.8

// Separate partitions detected line items into the confident bucket (phase 1)
// and the ambiguous bucket (phase 2). An item lands in phase 1 iff its
// confidence is at or above the threshold and at least one candidate match
// exists. The partition is total and keeps detection order within each bucket.
func Separate(items []*entities.DetectedLineItem, threshold float64) (phase1, phase2 []*entities.DetectedLineItem) {
	phase1 = make([]*entities.DetectedLineItem, 0, len(items))
	phase2 = make([]*entities.DetectedLineItem, 0, len(items))

	for _, item := range items {
		if item.Confidence >= threshold && len(item.Candidates) > 0 {
			phase1 = append(phase1, item)
		} else {
			phase2 = append(phase2, item)
		}
	}

	return phase1, phase2
}
