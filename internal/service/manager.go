package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"detectboard/internal/config"
	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/service/analysis"
	"detectboard/internal/service/summary"
)

// Detector runs one inference call. Implementations are not safe for
// concurrent use; the Manager hands each one to a single run at a time.
type Detector interface {
	Detect(image []byte, params model.DetectionParams) (*model.DetectionBatch, error)
	Close() error
}

// Analyzer streams a description of an image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mime, prompt string) (<-chan analysis.Chunk, error)
}

// Recorder stores finished runs.
type Recorder interface {
	Add(run dto.BufferedRun) dto.BufferedRun
}

// Broadcaster pushes messages to live viewers.
type Broadcaster interface {
	Broadcast(v interface{}) error
}

// Dependencies are the collaborators of a Manager. DetectorErr and
// AnalyzerErr record why a component could not be set up; they are
// returned to callers instead of failing the whole process.
type Dependencies struct {
	Detectors   []Detector
	DetectorErr error
	Labels      model.LabelTable
	Analyzer    Analyzer
	AnalyzerErr error
	Recorder    Recorder
	Hub         Broadcaster
}

// RunRequest is one image submitted for detection.
type RunRequest struct {
	Image  []byte
	Source string
	Params model.DetectionParams
}

// RunResult is the outcome of a detection run.
type RunResult struct {
	// Skipped is set when there was no image to process.
	Skipped   bool
	Run       model.Run
	Batch     *model.DetectionBatch
	Summaries []model.ClassSummary
	Total     int
}

// Manager wires the detector pool, the aggregator, the recorder and the
// live hub together.
type Manager struct {
	pool        chan Detector
	detectors   []Detector
	detectorErr error
	labels      model.LabelTable
	analyzer    Analyzer
	analyzerErr error
	recorder    Recorder
	hub         Broadcaster
	defaults    model.DetectionParams
	logger      *logger.Logger
	stopped     atomic.Bool
}

// NewManager builds a Manager and fills the detector pool.
func NewManager(deps Dependencies, cfg *config.Config, logger *logger.Logger) *Manager {
	m := &Manager{
		pool:        make(chan Detector, len(deps.Detectors)),
		detectors:   deps.Detectors,
		detectorErr: deps.DetectorErr,
		labels:      deps.Labels,
		analyzer:    deps.Analyzer,
		analyzerErr: deps.AnalyzerErr,
		recorder:    deps.Recorder,
		hub:         deps.Hub,
		defaults:    cfg.DetectionDefaults(),
		logger:      logger,
	}
	if m.labels == nil {
		m.labels = model.LabelTable{}
	}
	for _, d := range deps.Detectors {
		m.pool <- d
	}

	m.logger.Info("🎬 Manager started with %d detector(s)", len(deps.Detectors))
	return m
}

// Detect runs one image through the pipeline: detection, aggregation,
// recording and a live broadcast, strictly in that order.
func (m *Manager) Detect(ctx context.Context, req RunRequest) (*RunResult, error) {
	if len(req.Image) == 0 {
		return &RunResult{Skipped: true, Summaries: []model.ClassSummary{}}, nil
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	if err := m.detectionUnavailable(); err != nil {
		return nil, err
	}

	detector, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	batch, err := detector.Detect(req.Image, req.Params)
	m.pool <- detector
	if err != nil {
		if !errors.Is(err, model.ErrInference) && !errors.Is(err, model.ErrSetup) {
			err = fmt.Errorf("%w: %v", model.ErrInference, err)
		}
		m.logger.Error("Detection failed: %v", err)
		return nil, err
	}

	summaries, err := summary.Aggregate(batch.Detections, m.labels)
	if err != nil {
		m.logger.Error("Aggregation failed: %v", err)
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = "upload"
	}
	run := model.Run{
		ID:             uuid.NewString(),
		Source:         source,
		Timestamp:      time.Now(),
		Params:         req.Params,
		DetectionCount: len(batch.Detections),
	}

	if m.recorder != nil {
		buffered := m.recorder.Add(dto.BufferedRun{
			Run:        run,
			Detections: batch.Detections,
			Labels:     m.labels,
			Summaries:  summaries,
			Image:      batch.Annotated,
		})
		run = buffered.Run
	}

	total := summary.Total(summaries)
	if m.hub != nil {
		if err := m.hub.Broadcast(dto.LiveRunMessage{
			RunID:     run.ID,
			Source:    run.Source,
			Timestamp: run.Timestamp,
			Summaries: summaries,
			Total:     total,
		}); err != nil {
			m.logger.Warning("Failed to broadcast run %s: %v", run.ID, err)
		}
	}

	m.logger.Info("Run %s: %d detection(s) in %d class(es)", run.ID, total, len(summaries))
	return &RunResult{
		Run:       run,
		Batch:     batch,
		Summaries: summaries,
		Total:     total,
	}, nil
}

func (m *Manager) detectionUnavailable() error {
	if m.stopped.Load() {
		return fmt.Errorf("%w: manager stopped", model.ErrSetup)
	}
	if len(m.detectors) > 0 {
		return nil
	}
	if m.detectorErr != nil {
		return m.detectorErr
	}
	return fmt.Errorf("%w: no detector configured", model.ErrSetup)
}

func (m *Manager) acquire(ctx context.Context) (Detector, error) {
	select {
	case d := <-m.pool:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Analyze streams a description of image from the analysis service.
func (m *Manager) Analyze(ctx context.Context, image []byte, mime, prompt string) (<-chan analysis.Chunk, error) {
	if m.analyzer == nil {
		if m.analyzerErr != nil {
			return nil, m.analyzerErr
		}
		return nil, fmt.Errorf("%w: analysis service not configured", model.ErrSetup)
	}
	return m.analyzer.Analyze(ctx, image, mime, prompt)
}

// Labels returns the label table used for aggregation.
func (m *Manager) Labels() model.LabelTable {
	return m.labels
}

// DefaultParams returns the detection knobs a new run starts from.
func (m *Manager) DefaultParams() model.DetectionParams {
	return m.defaults
}

// DetectionReady reports whether Detect can run at all.
func (m *Manager) DetectionReady() bool {
	return m.detectionUnavailable() == nil
}

// AnalysisReady reports whether Analyze has a client behind it.
func (m *Manager) AnalysisReady() bool {
	return m.analyzer != nil
}

// Stop waits for in-flight runs to return their detectors and closes them.
func (m *Manager) Stop() {
	if m.stopped.Swap(true) {
		return
	}
	for range m.detectors {
		d := <-m.pool
		if err := d.Close(); err != nil {
			m.logger.Warning("Error closing detector: %v", err)
		}
	}
	m.logger.Info("🛑 All detectors stopped")
}
