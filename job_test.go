package jobwatch

import (
	"encoding/json"
	"testing"
)

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
		{JobStatus("expired"), false},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestUpdateFor_Flags(t *testing.T) {
	tests := []struct {
		status     JobStatus
		isComplete bool
		isError    bool
		isRunning  bool
	}{
		{StatusPending, false, false, true},
		{StatusRunning, false, false, true},
		{StatusCompleted, true, false, false},
		{StatusFailed, false, true, false},
		{StatusCancelled, false, false, false},
	}

	for _, tt := range tests {
		u := updateFor(Job{ID: "j1", Status: tt.status})
		if u.IsComplete != tt.isComplete || u.IsError != tt.isError || u.IsRunning != tt.isRunning {
			t.Errorf("updateFor(%s) = {complete:%v error:%v running:%v}, want {%v %v %v}",
				tt.status, u.IsComplete, u.IsError, u.IsRunning,
				tt.isComplete, tt.isError, tt.isRunning)
		}
	}
}

// TestJob_DecodeWireFormat decodes a realistic status response body.
func TestJob_DecodeWireFormat(t *testing.T) {
	body := `{
		"id": "export-42",
		"status": "completed",
		"progress": 100,
		"message": "export written",
		"result": {"path": "/tmp/export-42.csv"},
		"created_at": "2026-08-29T10:00:00Z",
		"started_at": "2026-08-29T10:00:05Z",
		"completed_at": "2026-08-29T10:01:30Z"
	}`

	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if job.ID != "export-42" {
		t.Errorf("ID = %q, want export-42", job.ID)
	}
	if job.Status != StatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want 100", job.Progress)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps missing")
	}

	var result struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatalf("result payload invalid: %v", err)
	}
	if result.Path != "/tmp/export-42.csv" {
		t.Errorf("result path = %q, want /tmp/export-42.csv", result.Path)
	}
}

func TestJob_DecodeMinimalBody(t *testing.T) {
	var job Job
	if err := json.Unmarshal([]byte(`{"id":"j1","status":"pending","progress":0,"created_at":"2026-08-29T10:00:00Z"}`), &job); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if job.StartedAt != nil {
		t.Error("StartedAt set for a pending job, want nil")
	}
	if job.Result != nil {
		t.Error("Result set without completion, want nil")
	}
}

func TestVisibilityFlag(t *testing.T) {
	var flag VisibilityFlag
	if !flag.Visible() {
		t.Error("zero value not visible, want visible")
	}
	flag.Set(false)
	if flag.Visible() {
		t.Error("Visible() = true after Set(false)")
	}
	flag.Set(true)
	if !flag.Visible() {
		t.Error("Visible() = false after Set(true)")
	}
}
