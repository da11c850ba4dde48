package jobwatch

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a background job.
//
// JobStatus is a closed enumeration: the backend reports exactly one of the
// five defined values. [StatusCompleted], [StatusFailed], and
// [StatusCancelled] are terminal; a job never leaves a terminal state.
type JobStatus string

const (
	// StatusPending indicates the job has been accepted but not started.
	StatusPending JobStatus = "pending"

	// StatusRunning indicates the job is actively executing.
	StatusRunning JobStatus = "running"

	// StatusCompleted indicates the job finished successfully.
	// The job's Result field carries the output payload.
	StatusCompleted JobStatus = "completed"

	// StatusFailed indicates the job finished with an error.
	// The job's ErrorMessage field describes the failure when the backend
	// provides one.
	StatusFailed JobStatus = "failed"

	// StatusCancelled indicates the job was cancelled before completion.
	StatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of the status.
// This implements the fmt.Stringer interface.
func (s JobStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is one a job never leaves.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// valid reports whether the status is one of the five defined values.
func (s JobStatus) valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is a point-in-time snapshot of a background job as reported by the
// status endpoint.
//
// A Job is owned by the backend; the watcher never mutates a snapshot, only
// decodes it and forwards it to callbacks. Field names match the wire
// format of the job-status API.
type Job struct {
	// ID is the opaque job identifier assigned by the backend.
	ID string `json:"id"`

	// Status is the job's lifecycle state at the time of the snapshot.
	Status JobStatus `json:"status"`

	// Progress is a percentage in [0, 100]. The backend reports it as
	// non-decreasing while the job runs; the watcher only forwards it.
	Progress int `json:"progress"`

	// Message is an optional human-readable progress description.
	Message string `json:"message,omitempty"`

	// ErrorMessage describes the failure for jobs in the failed state.
	ErrorMessage string `json:"error_message,omitempty"`

	// Result is the opaque output payload, present only once the job
	// has completed. Decoding it is the caller's concern.
	Result json.RawMessage `json:"result,omitempty"`

	// CreatedAt is when the backend accepted the job.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when execution began. Nil while pending.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job reached a terminal state. Nil until then.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Update is delivered to [Callbacks.OnUpdate] on every successful poll,
// terminal or not.
//
// At most one of the three flags is true. A cancelled job sets none of
// them: it is neither complete, nor errored, nor still running.
type Update struct {
	// Job is the snapshot that produced this update.
	Job Job

	// IsComplete is true when the job finished successfully.
	IsComplete bool

	// IsError is true when the job finished in the failed state.
	IsError bool

	// IsRunning is true while the job is pending or running.
	IsRunning bool
}

// updateFor builds the Update delivered for a decoded job snapshot.
func updateFor(job Job) Update {
	return Update{
		Job:        job,
		IsComplete: job.Status == StatusCompleted,
		IsError:    job.Status == StatusFailed,
		IsRunning:  job.Status == StatusPending || job.Status == StatusRunning,
	}
}
