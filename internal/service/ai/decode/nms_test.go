package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"detectboard/internal/model"
)

func box(l, t, r, b float64) model.Box {
	return model.Box{Left: l, Top: t, Right: r, Bottom: b}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Box
		want float64
	}{
		{"identical", box(0, 0, 10, 10), box(0, 0, 10, 10), 1},
		{"disjoint", box(0, 0, 10, 10), box(20, 20, 30, 30), 0},
		{"half overlap", box(0, 0, 10, 10), box(5, 0, 15, 10), 50.0 / 150.0},
		{"touching edges", box(0, 0, 10, 10), box(10, 0, 20, 10), 0},
		{"degenerate", box(0, 0, 0, 0), box(0, 0, 0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNMS_PerClass(t *testing.T) {
	dets := []model.Detection{
		{Box: box(0, 0, 10, 10), Confidence: 0.6, ClassID: 0},
		{Box: box(1, 1, 11, 11), Confidence: 0.9, ClassID: 0},
		{Box: box(1, 1, 11, 11), Confidence: 0.8, ClassID: 1},
		{Box: box(50, 50, 60, 60), Confidence: 0.4, ClassID: 0},
	}

	got := NMS(dets, 0.45, false, 100)

	assert.Len(t, got, 3)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, 0.8, got[1].Confidence)
	assert.Equal(t, 0.4, got[2].Confidence)
}

func TestNMS_Agnostic(t *testing.T) {
	dets := []model.Detection{
		{Box: box(1, 1, 11, 11), Confidence: 0.9, ClassID: 0},
		{Box: box(1, 1, 11, 11), Confidence: 0.8, ClassID: 1},
	}

	got := NMS(dets, 0.45, true, 100)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, got[0].ClassID)
}

func TestNMS_MaxDetections(t *testing.T) {
	var dets []model.Detection
	for i := 0; i < 30; i++ {
		x := float64(i * 20)
		dets = append(dets, model.Detection{Box: box(x, 0, x+10, 10), Confidence: float64(i) / 30, ClassID: 0})
	}

	got := NMS(dets, 0.45, false, 10)
	assert.Len(t, got, 10)
	assert.InDelta(t, 29.0/30, got[0].Confidence, 1e-9)
}

func TestNMS_EmptyAndInputUntouched(t *testing.T) {
	assert.Empty(t, NMS(nil, 0.5, false, 10))

	dets := []model.Detection{
		{Box: box(0, 0, 10, 10), Confidence: 0.2},
		{Box: box(0, 0, 10, 10), Confidence: 0.7},
	}
	_ = Apply(dets, model.DefaultDetectionParams())
	assert.Equal(t, 0.2, dets[0].Confidence)
}
