package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/presenter"
	"detectboard/internal/service"
)

const maxUploadSize = 32 << 20

// Detect response states.
const (
	StateIdle = "idle"
	StateDone = "done"
)

// DetectHandler handles POST /api/detect: a multipart "image" plus optional
// parameter fields. Without an image the response is the idle state.
func DetectHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "Invalid upload", http.StatusBadRequest)
			return
		}

		params, err := parseParams(r, manager.DefaultParams())
		if err != nil {
			writeError(w, logger, err)
			return
		}

		image, err := readUpload(r, "image")
		if err != nil {
			logger.Error("Error reading upload: %v", err)
			http.Error(w, "Invalid upload", http.StatusBadRequest)
			return
		}

		source := r.FormValue("source")
		if source != "camera" {
			source = "upload"
		}

		result, err := manager.Detect(r.Context(), service.RunRequest{Image: image, Source: source, Params: params})
		if err != nil {
			writeError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, buildDetectResponse(result, params))
	}
}

func buildDetectResponse(result *service.RunResult, params model.DetectionParams) dto.DetectResponse {
	if result.Skipped {
		return dto.DetectResponse{State: StateIdle, Rows: []dto.SummaryRow{}, Params: params}
	}

	resp := dto.DetectResponse{
		State:    StateDone,
		RunID:    result.Run.ID,
		Image:    base64.StdEncoding.EncodeToString(result.Batch.Annotated),
		Width:    result.Batch.Width,
		Height:   result.Batch.Height,
		Rows:     presenter.Rows(result.Summaries),
		Total:    result.Total,
		Stats:    presenter.Stats(result.Batch.Detections),
		Params:   params,
		Empty:    result.Total == 0,
		ChartURL: "/api/runs/chart?id=" + result.Run.ID,
	}
	if resp.Empty {
		resp.Message = presenter.NoDetectionsMessage
	}
	return resp
}

// readUpload returns the bytes of a multipart file, or nil when the field is absent.
func readUpload(r *http.Request, field string) ([]byte, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// parseParams overrides defaults with whichever parameter fields are present.
func parseParams(r *http.Request, defaults model.DetectionParams) (model.DetectionParams, error) {
	params := defaults

	if v := r.FormValue("confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("%w: confidence %q", model.ErrInvalidParams, v)
		}
		params.Confidence = f
	}
	if v := r.FormValue("iou"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("%w: iou %q", model.ErrInvalidParams, v)
		}
		params.IoU = f
	}
	if v := r.FormValue("agnostic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return params, fmt.Errorf("%w: agnostic %q", model.ErrInvalidParams, v)
		}
		params.Agnostic = b
	}
	if v := r.FormValue("multi_label"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return params, fmt.Errorf("%w: multi_label %q", model.ErrInvalidParams, v)
		}
		params.MultiLabel = b
	}
	if v := r.FormValue("max_det"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("%w: max_det %q", model.ErrInvalidParams, v)
		}
		params.MaxDetections = n
	}

	return params, params.Validate()
}
