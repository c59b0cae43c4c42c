package model

import "time"

// Run is the stored record of one detection run.
type Run struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	Source         string          `json:"source"`
	Timestamp      time.Time       `json:"timestamp"`
	FilePath       string          `json:"filepath"`
	FileSize       int64           `json:"filesize"`
	Params         DetectionParams `json:"params"`
	DetectionCount int             `json:"detection_count"`
}

// StoredDetection is a detection row persisted with its run.
type StoredDetection struct {
	ID       int64  `json:"id"`
	RunID    string `json:"run_id"`
	Sequence int    `json:"sequence"`
	Label    string `json:"label"`
	Detection
}
