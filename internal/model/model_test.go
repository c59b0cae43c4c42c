package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  DetectionParams
		wantErr bool
	}{
		{"defaults", DefaultDetectionParams(), false},
		{"edges", DetectionParams{Confidence: 0, IoU: 1, MaxDetections: 2000}, false},
		{"confidence too high", DetectionParams{Confidence: 1.01, IoU: 0.45, MaxDetections: 100}, true},
		{"negative iou", DetectionParams{Confidence: 0.3, IoU: -0.1, MaxDetections: 100}, true},
		{"max det too small", DetectionParams{Confidence: 0.3, IoU: 0.45, MaxDetections: 5}, true},
		{"max det too large", DetectionParams{Confidence: 0.3, IoU: 0.45, MaxDetections: 2001}, true},
		{"confidence NaN", DetectionParams{Confidence: math.NaN(), IoU: 0.45, MaxDetections: 100}, true},
		{"iou NaN", DetectionParams{Confidence: 0.3, IoU: math.NaN(), MaxDetections: 100}, true},
		{"iou +Inf", DetectionParams{Confidence: 0.3, IoU: math.Inf(1), MaxDetections: 100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidParams), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBox_Geometry(t *testing.T) {
	b := Box{Left: 10, Top: 20, Right: 50, Bottom: 80}
	assert.Equal(t, 40.0, b.Width())
	assert.Equal(t, 60.0, b.Height())
	assert.Equal(t, 2400.0, b.Area())

	inverted := Box{Left: 50, Top: 80, Right: 10, Bottom: 20}
	assert.Zero(t, inverted.Area())
}

func TestLoadLabelTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(path, []byte("person\ncar\n\n  dog  \n"), 0644))

	table, err := LoadLabelTable(path)
	require.NoError(t, err)

	assert.Equal(t, LabelTable{0: "person", 1: "car", 3: "dog"}, table)
	_, ok := table.Lookup(2)
	assert.False(t, ok)
	assert.Equal(t, []string{"person", "car", "dog"}, table.Names())
}

func TestLoadLabelTable_Errors(t *testing.T) {
	_, err := LoadLabelTable(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n\n"), 0644))
	_, err = LoadLabelTable(empty)
	assert.Error(t, err)
}

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()
	assert.Len(t, labels, 80)
	name, ok := labels.Lookup(0)
	assert.True(t, ok)
	assert.Equal(t, "person", name)
	assert.Equal(t, "toothbrush", labels[79])
}

func TestCOCOPaperLabels(t *testing.T) {
	labels := COCOPaperLabels()
	assert.Len(t, labels, 80)

	gaps := map[int]bool{12: true, 26: true, 29: true, 30: true, 45: true, 66: true, 68: true, 69: true, 71: true, 83: true}
	for id := 0; id <= 91; id++ {
		_, ok := labels.Lookup(id)
		want := id >= 1 && id <= 90 && !gaps[id]
		if ok != want {
			t.Errorf("Lookup(%d) ok = %v, expected %v", id, ok, want)
		}
	}

	for id, name := range map[int]string{1: "person", 13: "stop sign", 44: "bottle", 47: "cup", 62: "chair", 67: "dining table", 90: "toothbrush"} {
		assert.Equal(t, name, labels[id], "class %d", id)
	}
}
