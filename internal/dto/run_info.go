package dto

import (
	"encoding/json"
	"time"
)

// RunInfo is one entry of the run history listing.
type RunInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Date           time.Time `json:"date"`
	TimeOfDay      time.Time `json:"timeOfDay"`
	Source         string    `json:"source"`
	Labels         []string  `json:"labels"`
	DetectionCount int       `json:"detectionCount"`
}

// MarshalJSON customizes JSON output for RunInfo to format date and time-of-day.
func (p RunInfo) MarshalJSON() ([]byte, error) {
	type Alias RunInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(p),
	})
}

// RunsData is a paginated response payload for the run history.
type RunsData struct {
	Runs        []RunInfo `json:"runs"`
	ImagesDir   string    `json:"imagesDir"`
	Size        int64     `json:"size"`
	MaxSize     int64     `json:"maxSize"`
	Length      int       `json:"length"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
	Limit       int       `json:"pageSize"`
}
