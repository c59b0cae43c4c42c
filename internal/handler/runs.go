package handler

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"

	"detectboard/internal/config"
	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/presenter"
	"detectboard/internal/repository"
	"detectboard/internal/service/summary"
)

// PendingRuns gives access to runs that have not been flushed yet.
type PendingRuns interface {
	Lookup(id string) (dto.BufferedRun, bool)
	Discard(id string) bool
	DiscardAll()
}

// GetRunsHandler returns a filtered, paginated run history from the database.
func GetRunsHandler(cfg *config.Config, logger *logger.Logger,
	runRepo repository.RunRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.RunFilters{
			Source:     q.Get("source"),
			Label:      q.Get("label"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			TimeAfter:  parseTimeOfDay(q.Get("timeAfter")),
			TimeBefore: parseTimeOfDay(q.Get("timeBefore")),
		}

		totalCount, err := runRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting runs: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		runs, err := runRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying runs from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := runRepo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting image directory size: %v", err)
			totalSize = 0
		}

		infos := make([]dto.RunInfo, 0, len(runs))
		for _, run := range runs {
			labels, err := detectionRepo.GetLabelsByRunID(run.ID)
			if err != nil {
				logger.Error("Error getting labels for run %s: %v", run.ID, err)
				labels = []string{}
			}

			infos = append(infos, dto.RunInfo{
				ID:             run.ID,
				Name:           run.Filename,
				Date:           run.Timestamp,
				TimeOfDay:      run.Timestamp,
				Source:         run.Source,
				Labels:         labels,
				DetectionCount: run.DetectionCount,
			})
		}

		writeJSON(w, logger, http.StatusOK, dto.RunsData{
			Runs:        infos,
			ImagesDir:   cfg.ImageDirectory,
			Size:        totalSize,
			MaxSize:     cfg.MaxImageDirectorySize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewRunHandler serves the annotated image of a run given by the "id" query parameter.
func ViewRunHandler(pending PendingRuns, runRepo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Run id is required", http.StatusBadRequest)
			return
		}

		if buffered, ok := pending.Lookup(id); ok {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(buffered.Image)
			return
		}

		run, err := runRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading run %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, run.FilePath)
	}
}

// RunSummaryHandler returns the per-class rows of a run.
func RunSummaryHandler(pending PendingRuns, runRepo repository.RunRepository,
	detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, summaries, ok := loadRunSummaries(w, r, pending, runRepo, detectionRepo, logger)
		if !ok {
			return
		}

		resp := dto.RunSummaryResponse{
			Run:   run,
			Rows:  presenter.Rows(summaries),
			Total: summary.Total(summaries),
		}
		if resp.Total == 0 {
			resp.Empty = true
			resp.Message = presenter.NoDetectionsMessage
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// RunChartHandler renders the bar chart of a run as an HTML page.
func RunChartHandler(pending PendingRuns, runRepo repository.RunRepository,
	detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, summaries, ok := loadRunSummaries(w, r, pending, runRepo, detectionRepo, logger)
		if !ok {
			return
		}

		var buf bytes.Buffer
		title := "Detections " + run.Timestamp.Format("2006-01-02 15:04:05")
		if err := presenter.RenderBarChart(&buf, title, summaries); err != nil {
			logger.Error("Error rendering chart for run %s: %v", run.ID, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}

// loadRunSummaries finds a run, pending or stored, and its summaries. It
// writes the error response itself and reports false when there is nothing
// to show.
func loadRunSummaries(w http.ResponseWriter, r *http.Request, pending PendingRuns,
	runRepo repository.RunRepository, detectionRepo repository.DetectionRepository,
	logger *logger.Logger) (model.Run, []model.ClassSummary, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Run id is required", http.StatusBadRequest)
		return model.Run{}, nil, false
	}

	if buffered, ok := pending.Lookup(id); ok {
		return buffered.Run, buffered.Summaries, true
	}

	run, err := runRepo.GetByID(id)
	if err != nil {
		logger.Error("Error loading run %s: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return model.Run{}, nil, false
	}
	if run == nil {
		http.NotFound(w, r)
		return model.Run{}, nil, false
	}

	stored, err := detectionRepo.GetByRunID(id)
	if err != nil {
		logger.Error("Error loading detections for run %s: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return model.Run{}, nil, false
	}

	summaries, err := summary.FromStored(stored)
	if err != nil {
		writeError(w, logger, err)
		return model.Run{}, nil, false
	}
	return *run, summaries, true
}

// DeleteRunHandler removes a run, pending or stored, with its image.
func DeleteRunHandler(pending PendingRuns, runRepo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Run id is required", http.StatusBadRequest)
			return
		}

		if !pending.Discard(id) {
			run, err := runRepo.GetByID(id)
			if err != nil {
				logger.Error("Error loading run %s: %v", id, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if run == nil {
				http.NotFound(w, r)
				return
			}

			if err := os.Remove(run.FilePath); err != nil && !os.IsNotExist(err) {
				logger.Error("Failed to delete file %s: %v", run.FilePath, err)
			}
			if err := runRepo.Delete(id); err != nil {
				logger.Error("Failed to delete from database: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		logger.Info("Deleted run: %s", id)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

// ClearRunsHandler deletes every run, its image file and its detections.
func ClearRunsHandler(cfg *config.Config, pending PendingRuns, runRepo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		pending.DiscardAll()

		if err := runRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading image directory: %v", err)
		}
		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		logger.Info("All runs cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}
