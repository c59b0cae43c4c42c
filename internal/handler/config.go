package handler

import (
	"net/http"

	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/service"
)

// ConfigHandler handles GET /api/config with the parameter defaults and
// ranges the detection page builds its widgets from.
func ConfigHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, dto.ConfigResponse{
			Defaults: manager.DefaultParams(),
			Ranges: map[string]dto.ParamRange{
				"confidence": {Min: 0, Max: 1, Step: 0.01},
				"iou":        {Min: 0, Max: 1, Step: 0.01},
				"max_det":    {Min: model.MinMaxDetections, Max: model.MaxMaxDetections, Step: 10},
			},
			Labels:         manager.Labels().Names(),
			AnalysisReady:  manager.AnalysisReady(),
			DetectionReady: manager.DetectionReady(),
		})
	}
}
