package dto

import "time"

// RunFilters describe user-provided filters to narrow the run history.
type RunFilters struct {
	Source     string
	Label      string
	DateAfter  time.Time
	DateBefore time.Time
	TimeAfter  time.Time
	TimeBefore time.Time
	Limit      int
	Offset     int
}
