package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"detectboard/internal/config"
	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/repository"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// Recorder buffers finished runs in memory and periodically flushes them
// to the image directory and the database.
type Recorder struct {
	imagesDir     string
	limit         int
	interval      time.Duration
	maxDirBytes   int64
	pending       []dto.BufferedRun
	mu            sync.Mutex
	logger        *logger.Logger
	runRepo       repository.RunRepository
	detectionRepo repository.DetectionRepository
}

// NewRecorder creates a Recorder from the storage settings in config.
func NewRecorder(cfg *config.Config, logger *logger.Logger, runRepo repository.RunRepository, detectionRepo repository.DetectionRepository) *Recorder {
	limit := cfg.ImageBufferLimit
	if limit < 1 {
		limit = 1
	}
	interval := time.Duration(cfg.ImageBufferFlush) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Recorder{
		imagesDir:     cfg.ImageDirectory,
		limit:         limit,
		interval:      interval,
		maxDirBytes:   cfg.MaxImageDirectorySize << 30,
		pending:       make([]dto.BufferedRun, 0, limit),
		logger:        logger,
		runRepo:       runRepo,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return nil
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Add queues a finished run. Filename, path and size are filled in here so
// the run can be looked up before it reaches the disk. A full buffer is
// flushed right away.
func (s *Recorder) Add(run dto.BufferedRun) dto.BufferedRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.Run.Timestamp.IsZero() {
		run.Run.Timestamp = time.Now()
	}
	run.Run.Filename = fileName(run)
	run.Run.FilePath = filepath.Join(s.imagesDir, run.Run.Filename)
	run.Run.FileSize = int64(len(run.Image))
	run.Run.DetectionCount = len(run.Detections)

	s.pending = append(s.pending, run)
	s.logger.Info("Buffered run %s (%d/%d)", run.Run.ID, len(s.pending), s.limit)

	if len(s.pending) >= s.limit {
		s.flushLocked()
	}
	return run
}

// Lookup returns a run that is still waiting to be flushed.
func (s *Recorder) Lookup(id string) (dto.BufferedRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.pending {
		if run.Run.ID == id {
			return run, true
		}
	}
	return dto.BufferedRun{}, false
}

// Pending returns the number of buffered runs.
func (s *Recorder) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Discard drops a buffered run without writing it. It reports whether the
// run was pending.
func (s *Recorder) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, run := range s.pending {
		if run.Run.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// DiscardAll drops every buffered run.
func (s *Recorder) DiscardAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.pending[:0]
}

// Flush writes buffered runs to disk and the database and returns how many
// were saved.
func (s *Recorder) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Recorder) flushLocked() int {
	if len(s.pending) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, run := range s.pending {
		if err := s.save(run); err != nil {
			s.logger.Error("Error saving run %s: %v", run.Run.ID, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d runs to disk", savedCount)
	s.pending = s.pending[:0]

	if err := s.enforceSizeLimit(); err != nil {
		s.logger.Warning("Error trimming image directory: %v", err)
	}
	return savedCount
}

func (s *Recorder) save(run dto.BufferedRun) error {
	if err := os.WriteFile(run.Run.FilePath, run.Image, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	record := run.Run
	if err := s.runRepo.Insert(&record); err != nil {
		os.Remove(run.Run.FilePath)
		return err
	}

	if len(run.Detections) > 0 {
		if err := s.detectionRepo.InsertBatch(record.ID, run.Detections, run.Labels); err != nil {
			// Bez detekcji rekord byłby niespójny
			s.runRepo.Delete(record.ID)
			os.Remove(run.Run.FilePath)
			return err
		}
	}
	return nil
}

// enforceSizeLimit removes the oldest runs until the stored images fit
// within the configured directory size.
func (s *Recorder) enforceSizeLimit() error {
	if s.maxDirBytes <= 0 {
		return nil
	}

	size, err := s.runRepo.GetDirectorySize()
	if err != nil || size <= s.maxDirBytes {
		return err
	}

	runs, err := s.runRepo.GetAll(&dto.RunFilters{})
	if err != nil {
		return err
	}

	removed := 0
	for i := len(runs) - 1; i >= 0 && size > s.maxDirBytes; i-- {
		if err := s.runRepo.Delete(runs[i].ID); err != nil {
			return err
		}
		if err := os.Remove(runs[i].FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warning("Error removing image %s: %v", runs[i].FilePath, err)
		}
		size -= runs[i].FileSize
		removed++
	}

	s.logger.Info("Removed %d old runs to keep the image directory under %d bytes", removed, s.maxDirBytes)
	return nil
}

func fileName(run dto.BufferedRun) string {
	id := run.Run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.jpg", run.Run.Timestamp.Format(timestampLayout), run.Run.Source, id)
}
