package sqlite

import (
	"database/sql"
	"fmt"

	"detectboard/internal/dto"
	"detectboard/internal/model"
)

const runColumns = `r.id, r.filename, r.source, r.timestamp, r.filepath, r.filesize,
	r.confidence, r.iou, r.agnostic, r.multi_label, r.max_det, r.detection_count`

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *model.Run) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO runs (id, filename, source, timestamp, filepath, filesize,
			confidence, iou, agnostic, multi_label, max_det, detection_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Filename, run.Source, run.Timestamp.UTC(), run.FilePath, run.FileSize,
		run.Params.Confidence, run.Params.IoU, run.Params.Agnostic, run.Params.MultiLabel,
		run.Params.MaxDetections, run.DetectionCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. A missing run yields nil, nil.
func (r *RunRepository) GetByID(id string) (*model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetAll retrieves runs based on filter criteria, newest first.
func (r *RunRepository) GetAll(filter *dto.RunFilters) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT DISTINCT ` + runColumns + `
		FROM runs r
		LEFT JOIN detections d ON r.id = d.run_id
		WHERE 1=1` + where + `
		ORDER BY r.timestamp DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetTotalCount returns the number of runs matching the filter.
func (r *RunRepository) GetTotalCount(filter *dto.RunFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT COUNT(DISTINCT r.id)
		FROM runs r
		LEFT JOIN detections d ON r.id = d.run_id
		WHERE 1=1` + where

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// GetDirectorySize returns the summed size of all stored annotated images.
func (r *RunRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM runs`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum run sizes: %w", err)
	}
	return size, nil
}

// GetSources returns a list of unique run sources.
func (r *RunRepository) GetSources() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return queryStrings(r.db.Conn(), `SELECT DISTINCT source FROM runs ORDER BY source`)
}

// Delete removes a run. Its detections go with it through the foreign key.
func (r *RunRepository) Delete(id string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// DeleteAll removes all runs and their detections.
func (r *RunRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	err := row.Scan(&run.ID, &run.Filename, &run.Source, &run.Timestamp, &run.FilePath, &run.FileSize,
		&run.Params.Confidence, &run.Params.IoU, &run.Params.Agnostic, &run.Params.MultiLabel,
		&run.Params.MaxDetections, &run.DetectionCount)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// filterClause builds the AND conditions shared by GetAll and GetTotalCount.
// Dates and times are compared in UTC, the zone runs are stored in.
func filterClause(filter *dto.RunFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	clause := ""
	args := []interface{}{}

	if filter.Source != "" {
		clause += " AND r.source = ?"
		args = append(args, filter.Source)
	}

	if filter.Label != "" {
		clause += " AND d.label = ?"
		args = append(args, filter.Label)
	}

	if !filter.DateAfter.IsZero() {
		clause += " AND DATE(r.timestamp) >= ?"
		args = append(args, filter.DateAfter.UTC().Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clause += " AND DATE(r.timestamp) <= ?"
		args = append(args, filter.DateBefore.UTC().Format("2006-01-02"))
	}

	if !filter.TimeAfter.IsZero() {
		clause += " AND TIME(r.timestamp) >= ?"
		args = append(args, filter.TimeAfter.Format("15:04:05"))
	}

	if !filter.TimeBefore.IsZero() {
		clause += " AND TIME(r.timestamp) <= ?"
		args = append(args, filter.TimeBefore.Format("15:04:05"))
	}

	return clause, args
}

func queryStrings(conn *sql.DB, query string, args ...interface{}) ([]string, error) {
	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
