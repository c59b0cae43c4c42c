package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/service/analysis"
)

// Error kinds reported in dto.ErrorResponse.
const (
	KindInvalidParams = "invalid_params"
	KindSetup         = "setup"
	KindUnauthorized  = "unauthorized"
	KindConfiguration = "configuration"
	KindInference     = "inference"
	KindCancelled     = "cancelled"
	KindInternal      = "internal"
)

// classifyError maps a pipeline error to an HTTP status and a user-facing body.
func classifyError(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, model.ErrInvalidParams):
		return http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Kind: KindInvalidParams}
	case errors.Is(err, analysis.ErrUnauthorized):
		return http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:       "The analysis service rejected the API key.",
			Kind:        KindUnauthorized,
			Remediation: "Set a valid ANALYSIS_API_KEY and restart the server.",
		}
	case errors.Is(err, model.ErrSetup):
		return http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:       err.Error(),
			Kind:        KindSetup,
			Remediation: "Check MODEL_PATH, CONFIG_PATH, LABELS_PATH and the analysis settings, then restart the server.",
		}
	case errors.Is(err, model.ErrUnknownClass):
		return http.StatusInternalServerError, dto.ErrorResponse{
			Error:       err.Error(),
			Kind:        KindConfiguration,
			Remediation: "The label table does not match the model output. Check LABELS_PATH.",
		}
	case errors.Is(err, model.ErrInference):
		return http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error(), Kind: KindInference}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, dto.ErrorResponse{Error: "request cancelled", Kind: KindCancelled}
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal Server Error", Kind: KindInternal}
	}
}

// writeError logs err and writes it as a JSON error response.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status, body := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	} else {
		logger.Warning("Request rejected: %v", err)
	}
	writeJSON(w, logger, status, body)
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeOfDay parses a time-of-day string in the format "15:04" from the request (HTML input format).
func parseTimeOfDay(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
