package model

import "fmt"

// Box is a bounding box in pixel space of the decoded image.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width of the box, never negative.
func (b Box) Width() float64 {
	if b.Right < b.Left {
		return 0
	}
	return b.Right - b.Left
}

// Height of the box, never negative.
func (b Box) Height() float64 {
	if b.Bottom < b.Top {
		return 0
	}
	return b.Bottom - b.Top
}

// Area of the box.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Detection is one raw detector output: box, confidence and class index.
type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// DetectionBatch is everything a single inference call produces.
type DetectionBatch struct {
	Detections []Detection
	Width      int
	Height     int
	// Annotated holds the JPEG with boxes drawn on it.
	Annotated []byte
}

// ClassSummary aggregates the detections of one class within a batch.
type ClassSummary struct {
	Label          string  `json:"label"`
	ClassID        int     `json:"class_id"`
	Count          int     `json:"count"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Ranges accepted for DetectionParams.
const (
	MinMaxDetections = 10
	MaxMaxDetections = 2000
)

// DetectionParams are the runtime knobs of one inference call.
// They are passed by value so concurrent runs never share them.
type DetectionParams struct {
	Confidence    float64 `json:"confidence"`
	IoU           float64 `json:"iou"`
	Agnostic      bool    `json:"agnostic"`
	MultiLabel    bool    `json:"multi_label"`
	MaxDetections int     `json:"max_det"`
}

// DefaultDetectionParams mirrors the defaults of the detection page.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		Confidence:    0.25,
		IoU:           0.45,
		MaxDetections: 1000,
	}
}

// Validate checks that every knob is inside its declared range.
func (p DetectionParams) Validate() error {
	if !(p.Confidence >= 0 && p.Confidence <= 1) {
		return fmt.Errorf("%w: confidence %.2f outside [0, 1]", ErrInvalidParams, p.Confidence)
	}
	if !(p.IoU >= 0 && p.IoU <= 1) {
		return fmt.Errorf("%w: iou %.2f outside [0, 1]", ErrInvalidParams, p.IoU)
	}
	if p.MaxDetections < MinMaxDetections || p.MaxDetections > MaxMaxDetections {
		return fmt.Errorf("%w: max detections %d outside [%d, %d]",
			ErrInvalidParams, p.MaxDetections, MinMaxDetections, MaxMaxDetections)
	}
	return nil
}
