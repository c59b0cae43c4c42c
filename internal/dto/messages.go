package dto

import (
	"time"

	"detectboard/internal/model"
)

// BufferedRun holds a finished run before it is flushed to disk.
type BufferedRun struct {
	Run        model.Run
	Detections []model.Detection
	Labels     model.LabelTable
	Summaries  []model.ClassSummary
	Image      []byte
}

// LiveRunMessage is broadcast to /api/view viewers after every run.
type LiveRunMessage struct {
	RunID     string               `json:"runId"`
	Source    string               `json:"source"`
	Timestamp time.Time            `json:"timestamp"`
	Summaries []model.ClassSummary `json:"summaries"`
	Total     int                  `json:"total"`
}

// AnalyzeRequest is the first message a client sends on /api/analyze.
type AnalyzeRequest struct {
	Image  string `json:"image"` // base64, optionally a data URL
	Mime   string `json:"mime"`
	Prompt string `json:"prompt"`
}

// Analyze message types.
const (
	AnalyzeChunk = "chunk"
	AnalyzeDone  = "done"
	AnalyzeError = "error"
)

// AnalyzeMessage is one server message on /api/analyze.
type AnalyzeMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
