package model

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LabelTable maps class indices to human-readable names.
type LabelTable map[int]string

// Lookup returns the label for a class index.
func (t LabelTable) Lookup(classID int) (string, bool) {
	label, ok := t[classID]
	return label, ok
}

// Names returns the labels ordered by class index.
func (t LabelTable) Names() []string {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, t[id])
	}
	return names
}

// LoadLabelTable reads a names file: line N holds the label of class N.
// Blank lines keep their index but get no label.
func LoadLabelTable(path string) (LabelTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	table := LabelTable{}
	scanner := bufio.NewScanner(file)
	index := 0
	for scanner.Scan() {
		if label := strings.TrimSpace(scanner.Text()); label != "" {
			table[index] = label
		}
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return table, nil
}

var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// DefaultLabels returns the 80-class COCO table YOLOv5 checkpoints are trained on.
func DefaultLabels() LabelTable {
	table := make(LabelTable, len(cocoNames))
	for i, name := range cocoNames {
		table[i] = name
	}
	return table
}

// cocoMissingIDs are the ids the 91-category COCO paper list defines but
// the 2017 detection annotations never use.
var cocoMissingIDs = map[int]bool{12: true, 26: true, 29: true, 30: true, 45: true, 66: true, 68: true, 69: true, 71: true, 83: true}

// COCOPaperLabels returns the 1-based, gapped COCO ids (1..90) used by the
// TensorFlow object detection graphs such as MobileNet-SSD.
func COCOPaperLabels() LabelTable {
	table := make(LabelTable, len(cocoNames))
	next := 0
	for id := 1; next < len(cocoNames); id++ {
		if cocoMissingIDs[id] {
			continue
		}
		table[id] = cocoNames[next]
		next++
	}
	return table
}
