package dto

import "detectboard/internal/model"

// SummaryRow is one line of the per-class table.
type SummaryRow struct {
	Label          string `json:"label"`
	Count          int    `json:"count"`
	MeanConfidence string `json:"meanConfidence"`
}

// ConfidenceStats describe the confidence spread of a whole batch.
type ConfidenceStats struct {
	Detections int     `json:"detections"`
	Mean       float64 `json:"mean"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

// DetectResponse is the payload of POST /api/detect.
type DetectResponse struct {
	State    string                `json:"state"`
	RunID    string                `json:"runId,omitempty"`
	Image    string                `json:"image,omitempty"` // base64 JPEG
	Width    int                   `json:"width,omitempty"`
	Height   int                   `json:"height,omitempty"`
	Rows     []SummaryRow          `json:"rows"`
	Total    int                   `json:"total"`
	Stats    ConfidenceStats       `json:"stats"`
	Params   model.DetectionParams `json:"params"`
	Empty    bool                  `json:"empty"`
	Message  string                `json:"message,omitempty"`
	ChartURL string                `json:"chartUrl,omitempty"`
}

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind"`
	Remediation string `json:"remediation,omitempty"`
}

// ParamRange describes one tunable knob for the UI.
type ParamRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// ConfigResponse is the payload of GET /api/config.
type ConfigResponse struct {
	Defaults       model.DetectionParams `json:"defaults"`
	Ranges         map[string]ParamRange `json:"ranges"`
	Labels         []string              `json:"labels"`
	AnalysisReady  bool                  `json:"analysisReady"`
	DetectionReady bool                  `json:"detectionReady"`
}

// RunSummaryResponse is the payload of GET /api/runs/summary.
type RunSummaryResponse struct {
	Run     model.Run    `json:"run"`
	Rows    []SummaryRow `json:"rows"`
	Total   int          `json:"total"`
	Empty   bool         `json:"empty"`
	Message string       `json:"message,omitempty"`
}
