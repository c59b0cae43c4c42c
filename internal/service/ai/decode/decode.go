// Package decode turns raw network output tensors into detections.
// It has no cgo dependencies so it can be exercised without OpenCV.
package decode

import (
	"fmt"

	"detectboard/internal/model"
)

const (
	// yoloBaseColumns are cx, cy, w, h and objectness.
	yoloBaseColumns = 5
	// ssdColumns are batch, class, confidence, x1, y1, x2, y2.
	ssdColumns = 7
)

// Frame describes the decoded image and the size the network was fed.
type Frame struct {
	Width       int
	Height      int
	InputWidth  int
	InputHeight int
}

func (f Frame) scale() (float64, float64) {
	sx, sy := 1.0, 1.0
	if f.InputWidth > 0 {
		sx = float64(f.Width) / float64(f.InputWidth)
	}
	if f.InputHeight > 0 {
		sy = float64(f.Height) / float64(f.InputHeight)
	}
	return sx, sy
}

func (f Frame) clamp(b model.Box) model.Box {
	w, h := float64(f.Width), float64(f.Height)
	b.Left = clamp(b.Left, 0, w)
	b.Right = clamp(b.Right, 0, w)
	b.Top = clamp(b.Top, 0, h)
	b.Bottom = clamp(b.Bottom, 0, h)
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DecodeYOLOv5 reads rows of [cx, cy, w, h, objectness, class scores...] in
// network input coordinates. The score of a class is objectness × class score.
// With MultiLabel every class above the threshold yields a detection, otherwise
// only the best class of the row does.
func DecodeYOLOv5(output []float32, numClasses int, frame Frame, params model.DetectionParams) ([]model.Detection, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("invalid class count %d", numClasses)
	}
	cols := yoloBaseColumns + numClasses
	if len(output)%cols != 0 {
		return nil, fmt.Errorf("output length %d is not a multiple of %d columns", len(output), cols)
	}

	sx, sy := frame.scale()
	threshold := params.Confidence
	var detections []model.Detection

	for offset := 0; offset < len(output); offset += cols {
		row := output[offset : offset+cols]
		objectness := float64(row[4])
		if objectness < threshold {
			continue
		}

		cx, cy := float64(row[0]), float64(row[1])
		w, h := float64(row[2]), float64(row[3])
		box := frame.clamp(model.Box{
			Left:   (cx - w/2) * sx,
			Top:    (cy - h/2) * sy,
			Right:  (cx + w/2) * sx,
			Bottom: (cy + h/2) * sy,
		})

		if params.MultiLabel {
			for class := 0; class < numClasses; class++ {
				score := objectness * float64(row[yoloBaseColumns+class])
				if score >= threshold {
					detections = append(detections, model.Detection{Box: box, Confidence: score, ClassID: class})
				}
			}
			continue
		}

		best, bestScore := 0, float64(row[yoloBaseColumns])
		for class := 1; class < numClasses; class++ {
			if s := float64(row[yoloBaseColumns+class]); s > bestScore {
				best, bestScore = class, s
			}
		}
		score := objectness * bestScore
		if score >= threshold {
			detections = append(detections, model.Detection{Box: box, Confidence: score, ClassID: best})
		}
	}

	return detections, nil
}

// DecodeSSD reads rows of [batch, class, confidence, x1, y1, x2, y2] with
// coordinates normalised to [0, 1]. SSD heads emit one class per row, so
// MultiLabel has no effect.
func DecodeSSD(output []float32, frame Frame, params model.DetectionParams) ([]model.Detection, error) {
	if len(output)%ssdColumns != 0 {
		return nil, fmt.Errorf("output length %d is not a multiple of %d columns", len(output), ssdColumns)
	}

	w, h := float64(frame.Width), float64(frame.Height)
	var detections []model.Detection

	for offset := 0; offset < len(output); offset += ssdColumns {
		row := output[offset : offset+ssdColumns]
		confidence := float64(row[2])
		if confidence < params.Confidence {
			continue
		}

		box := frame.clamp(model.Box{
			Left:   float64(row[3]) * w,
			Top:    float64(row[4]) * h,
			Right:  float64(row[5]) * w,
			Bottom: float64(row[6]) * h,
		})
		detections = append(detections, model.Detection{
			Box:        box,
			Confidence: confidence,
			ClassID:    int(row[1]),
		})
	}

	return detections, nil
}
