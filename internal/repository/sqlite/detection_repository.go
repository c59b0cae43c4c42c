package sqlite

import (
	"fmt"

	"detectboard/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch stores the detections of one run in a single transaction.
// The slice order is kept in the sequence column.
func (r *DetectionRepository) InsertBatch(runID string, detections []model.Detection, labels model.LabelTable) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (run_id, sequence, class_id, label,
			box_left, box_top, box_right, box_bottom, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, det := range detections {
		label, ok := labels.Lookup(det.ClassID)
		if !ok {
			return fmt.Errorf("%w: %d", model.ErrUnknownClass, det.ClassID)
		}
		if _, err := stmt.Exec(runID, i, det.ClassID, label,
			det.Box.Left, det.Box.Top, det.Box.Right, det.Box.Bottom, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves all detections of a run in their original order.
func (r *DetectionRepository) GetByRunID(runID string) ([]model.StoredDetection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, run_id, sequence, class_id, label,
			box_left, box_top, box_right, box_bottom, confidence
		FROM detections WHERE run_id = ?
		ORDER BY sequence
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	detections := []model.StoredDetection{}
	for rows.Next() {
		var det model.StoredDetection
		if err := rows.Scan(&det.ID, &det.RunID, &det.Sequence, &det.ClassID, &det.Label,
			&det.Box.Left, &det.Box.Top, &det.Box.Right, &det.Box.Bottom, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detections: %w", err)
	}
	return detections, nil
}

// GetLabelsByRunID returns the distinct labels of a run in first-seen order.
func (r *DetectionRepository) GetLabelsByRunID(runID string) ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	labels, err := queryStrings(r.db.Conn(), `
		SELECT label FROM detections WHERE run_id = ?
		GROUP BY label
		ORDER BY MIN(sequence)
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run labels: %w", err)
	}
	return labels, nil
}

// GetAllLabels returns a list of all unique detected labels.
func (r *DetectionRepository) GetAllLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	labels, err := queryStrings(r.db.Conn(), `SELECT DISTINCT label FROM detections ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to get labels: %w", err)
	}
	return labels, nil
}
