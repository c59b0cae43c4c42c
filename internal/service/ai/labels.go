package ai

import (
	"fmt"

	"detectboard/internal/config"
	"detectboard/internal/model"
)

// LoadLabels resolves the label table for the configured network. An explicit
// LABELS_PATH wins; otherwise the table bundled for the model format is used.
func LoadLabels(cfg *config.Config) (model.LabelTable, error) {
	if cfg.LabelsPath != "" {
		labels, err := model.LoadLabelTable(cfg.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrSetup, err)
		}
		return labels, nil
	}

	switch cfg.ModelFormat {
	case FormatSSD:
		return model.COCOPaperLabels(), nil
	case FormatYOLOv5:
		return model.DefaultLabels(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported model format %q", model.ErrSetup, cfg.ModelFormat)
	}
}
