package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ========================================
// DTO Tests
// ========================================

func TestRunInfo_MarshalJSON(t *testing.T) {
	info := RunInfo{
		ID:             "abc",
		Name:           "run.jpg",
		Date:           time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
		TimeOfDay:      time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC),
		Source:         "upload",
		Labels:         []string{"person", "car"},
		DetectionCount: 3,
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	jsonStr := string(data)

	// Check date format (DD-MM-YYYY)
	if !strings.Contains(jsonStr, `"date":"15-06-2025"`) {
		t.Errorf("Expected date format DD-MM-YYYY, got: %s", jsonStr)
	}

	// Check time format (HH:MM)
	if !strings.Contains(jsonStr, `"timeOfDay":"14:30"`) {
		t.Errorf("Expected time format HH:MM, got: %s", jsonStr)
	}

	if !strings.Contains(jsonStr, `"detectionCount":3`) {
		t.Errorf("Expected detection count, got: %s", jsonStr)
	}
}

func TestRunsData_PageSizeField(t *testing.T) {
	data, err := json.Marshal(RunsData{Limit: 24})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"pageSize":24`) {
		t.Errorf("Expected pageSize field, got: %s", data)
	}
}
