package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectboard/internal/model"
	"detectboard/internal/service/summary"
)

func params(conf float64, multi bool) model.DetectionParams {
	p := model.DefaultDetectionParams()
	p.Confidence = conf
	p.MultiLabel = multi
	return p
}

func TestDecodeYOLOv5_BestClass(t *testing.T) {
	// Two classes; 640x640 input, 1280x640 image so x scales by 2.
	output := []float32{
		320, 320, 100, 50, 0.9, 0.2, 0.8, // class 1 wins: 0.9*0.8 = 0.72
		100, 100, 20, 20, 0.1, 0.9, 0.1, // objectness below threshold
		200, 200, 40, 40, 0.5, 0.3, 0.4, // 0.5*0.4 = 0.2 below threshold
	}
	frame := Frame{Width: 1280, Height: 640, InputWidth: 640, InputHeight: 640}

	got, err := DecodeYOLOv5(output, 2, frame, params(0.25, false))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 1, got[0].ClassID)
	assert.InDelta(t, 0.72, got[0].Confidence, 1e-6)
	assert.InDelta(t, 540, got[0].Box.Left, 1e-6)
	assert.InDelta(t, 740, got[0].Box.Right, 1e-6)
	assert.InDelta(t, 295, got[0].Box.Top, 1e-6)
	assert.InDelta(t, 345, got[0].Box.Bottom, 1e-6)
}

func TestDecodeYOLOv5_MultiLabel(t *testing.T) {
	output := []float32{
		320, 320, 100, 100, 1.0, 0.6, 0.5, 0.1,
	}
	frame := Frame{Width: 640, Height: 640, InputWidth: 640, InputHeight: 640}

	got, err := DecodeYOLOv5(output, 3, frame, params(0.4, true))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ClassID)
	assert.Equal(t, 1, got[1].ClassID)
	assert.Equal(t, got[0].Box, got[1].Box)

	single, err := DecodeYOLOv5(output, 3, frame, params(0.4, false))
	require.NoError(t, err)
	assert.Len(t, single, 1)
}

func TestDecodeYOLOv5_ClampsToImage(t *testing.T) {
	output := []float32{5, 5, 40, 40, 0.9, 0.9}
	frame := Frame{Width: 640, Height: 640, InputWidth: 640, InputHeight: 640}

	got, err := DecodeYOLOv5(output, 1, frame, params(0.25, false))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Box.Left)
	assert.Zero(t, got[0].Box.Top)
}

func TestDecodeYOLOv5_BadShape(t *testing.T) {
	_, err := DecodeYOLOv5(make([]float32, 13), 3, Frame{}, params(0.25, false))
	assert.Error(t, err)

	_, err = DecodeYOLOv5(nil, 0, Frame{}, params(0.25, false))
	assert.Error(t, err)
}

func TestDecodeSSD(t *testing.T) {
	output := []float32{
		0, 1, 0.95, 0.1, 0.2, 0.5, 0.6,
		0, 3, 0.30, 0.0, 0.0, 0.1, 0.1,
		0, 18, 0.70, 0.5, 0.5, 1.2, 0.9,
	}
	frame := Frame{Width: 200, Height: 100}

	got, err := DecodeSSD(output, frame, params(0.5, false))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].ClassID)
	assert.Equal(t, model.Box{Left: 20, Top: 20, Right: 100, Bottom: 60}, roundBox(got[0].Box))
	assert.Equal(t, 18, got[1].ClassID)
	assert.InDelta(t, 200, got[1].Box.Right, 1e-9)

	_, err = DecodeSSD(make([]float32, 8), frame, params(0.5, false))
	assert.Error(t, err)
}

func roundBox(b model.Box) model.Box {
	r := func(v float64) float64 { return float64(int(v + 0.5)) }
	return model.Box{Left: r(b.Left), Top: r(b.Top), Right: r(b.Right), Bottom: r(b.Bottom)}
}

func TestDecodeSSD_EveryGraphClassHasALabel(t *testing.T) {
	labels := model.COCOPaperLabels()

	var output []float32
	for id := 1; id <= 90; id++ {
		if _, ok := labels[id]; ok {
			output = append(output, 0, float32(id), 0.9, 0.1, 0.1, 0.5, 0.5)
		}
	}

	detections, err := DecodeSSD(output, Frame{Width: 100, Height: 100}, params(0.5, false))
	require.NoError(t, err)
	require.Len(t, detections, 80)

	summaries, err := summary.Aggregate(detections, labels)
	require.NoError(t, err)
	assert.Len(t, summaries, 80)

	chair, err := DecodeSSD([]float32{0, 62, 0.9, 0.1, 0.1, 0.5, 0.5}, Frame{Width: 100, Height: 100}, params(0.5, false))
	require.NoError(t, err)
	summaries, err = summary.Aggregate(chair, labels)
	require.NoError(t, err)
	assert.Equal(t, "chair", summaries[0].Label)
}

func TestDecodeYOLOv5_MoreClassesThanLabels(t *testing.T) {
	// Three class columns from the network output, two labels configured.
	output := []float32{
		320, 320, 100, 100, 0.9, 0.1, 0.1, 0.8,
		100, 100, 20, 20, 0.9, 0.7, 0.1, 0.1,
	}
	frame := Frame{Width: 640, Height: 640, InputWidth: 640, InputHeight: 640}
	labels := model.LabelTable{0: "person", 1: "car"}

	detections, err := DecodeYOLOv5(output, 3, frame, params(0.25, false))
	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, 2, detections[0].ClassID)

	summaries, err := summary.Aggregate(detections, labels)
	assert.ErrorIs(t, err, model.ErrUnknownClass)
	assert.Nil(t, summaries)
}
