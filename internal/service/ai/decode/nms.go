package decode

import (
	"math"
	"sort"

	"detectboard/internal/model"
)

// IoU computes the intersection-over-union of two boxes.
func IoU(a, b model.Box) float64 {
	inter := model.Box{
		Left:   math.Max(a.Left, b.Left),
		Top:    math.Max(a.Top, b.Top),
		Right:  math.Min(a.Right, b.Right),
		Bottom: math.Min(a.Bottom, b.Bottom),
	}.Area()

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// NMS greedily keeps the highest scoring boxes and drops any later box that
// overlaps a kept one by more than iouThreshold. Boxes of different classes
// never suppress each other unless agnostic is set. At most maxDet detections
// are returned, sorted by descending confidence.
func NMS(detections []model.Detection, iouThreshold float64, agnostic bool, maxDet int) []model.Detection {
	if len(detections) == 0 {
		return []model.Detection{}
	}

	sorted := make([]model.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]model.Detection, 0, len(sorted))
	for _, candidate := range sorted {
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}

		suppressed := false
		for _, k := range kept {
			if !agnostic && k.ClassID != candidate.ClassID {
				continue
			}
			if IoU(k.Box, candidate.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}

	return kept
}

// Apply runs NMS with the knobs of a detection run.
func Apply(detections []model.Detection, params model.DetectionParams) []model.Detection {
	return NMS(detections, params.IoU, params.Agnostic, params.MaxDetections)
}
