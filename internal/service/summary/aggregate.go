// Package summary groups raw detections into per-class summaries.
package summary

import (
	"fmt"

	"detectboard/internal/model"
)

type accumulator struct {
	classID int
	count   int
	sum     float64
}

// Aggregate groups detections by class index in order of first appearance.
// A class index missing from labels fails the whole batch.
func Aggregate(detections []model.Detection, labels model.LabelTable) ([]model.ClassSummary, error) {
	index := make(map[int]int)
	groups := make([]accumulator, 0)

	for _, det := range detections {
		pos, seen := index[det.ClassID]
		if !seen {
			if _, ok := labels.Lookup(det.ClassID); !ok {
				return nil, fmt.Errorf("%w: %d", model.ErrUnknownClass, det.ClassID)
			}
			pos = len(groups)
			index[det.ClassID] = pos
			groups = append(groups, accumulator{classID: det.ClassID})
		}
		groups[pos].count++
		groups[pos].sum += det.Confidence
	}

	summaries := make([]model.ClassSummary, 0, len(groups))
	for _, g := range groups {
		label, _ := labels.Lookup(g.classID)
		summaries = append(summaries, model.ClassSummary{
			Label:          label,
			ClassID:        g.classID,
			Count:          g.count,
			MeanConfidence: g.sum / float64(g.count),
		})
	}
	return summaries, nil
}

// Total sums the counts of all summaries.
func Total(summaries []model.ClassSummary) int {
	total := 0
	for _, s := range summaries {
		total += s.Count
	}
	return total
}

// FromStored rebuilds summaries for a persisted run, using the labels stored
// alongside each detection.
func FromStored(stored []model.StoredDetection) ([]model.ClassSummary, error) {
	labels := model.LabelTable{}
	detections := make([]model.Detection, 0, len(stored))
	for _, s := range stored {
		labels[s.ClassID] = s.Label
		detections = append(detections, s.Detection)
	}
	return Aggregate(detections, labels)
}
