// Package presenter turns class summaries into table rows, charts and
// batch statistics.
package presenter

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"detectboard/internal/dto"
	"detectboard/internal/model"
)

// NoDetectionsMessage is shown instead of a table and chart when a run
// found nothing.
const NoDetectionsMessage = "No objects detected. Try lowering the confidence threshold."

// Rows formats summaries for display, keeping their order.
func Rows(summaries []model.ClassSummary) []dto.SummaryRow {
	rows := make([]dto.SummaryRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, dto.SummaryRow{
			Label:          s.Label,
			Count:          s.Count,
			MeanConfidence: fmt.Sprintf("%.2f", s.MeanConfidence),
		})
	}
	return rows
}

// Stats describes the confidence spread over a whole batch.
func Stats(detections []model.Detection) dto.ConfidenceStats {
	if len(detections) == 0 {
		return dto.ConfidenceStats{}
	}

	values := make([]float64, len(detections))
	for i, d := range detections {
		values[i] = d.Confidence
	}

	return dto.ConfidenceStats{
		Detections: len(values),
		Mean:       stat.Mean(values, nil),
		Min:        floats.Min(values),
		Max:        floats.Max(values),
	}
}
