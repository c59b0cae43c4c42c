package repository

import (
	"detectboard/internal/dto"
	"detectboard/internal/model"
)

// RunRepository defines the interface for run data operations.
type RunRepository interface {
	// Create operations
	Insert(run *model.Run) error

	// Read operations
	GetByID(id string) (*model.Run, error)
	GetAll(filter *dto.RunFilters) ([]model.Run, error)
	GetTotalCount(filter *dto.RunFilters) (int, error)
	GetDirectorySize() (int64, error)
	GetSources() ([]string, error)

	// Delete operations
	Delete(id string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(runID string, detections []model.Detection, labels model.LabelTable) error

	// Read operations
	GetByRunID(runID string) ([]model.StoredDetection, error)
	GetLabelsByRunID(runID string) ([]string, error)
	GetAllLabels() ([]string, error)
}
