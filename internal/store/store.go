package store

import "time"

// JobSnapshot is the stored representation of a job's last observed state.
//
// JobSnapshot is optimized for JSON serialization (used by the status API
// and SSE). It is decoupled from the watcher's public types to allow
// independent evolution.
type JobSnapshot struct {
	// ID is the job identifier.
	ID string `json:"id"`

	// Status is the job's lifecycle state at the time of the poll.
	Status string `json:"status"`

	// Progress is the reported completion percentage.
	Progress int `json:"progress"`

	// Message is the optional progress description.
	Message string `json:"message,omitempty"`

	// Error contains the job's error message if the poll observed one.
	// nil indicates no error.
	Error *string `json:"error"`

	// LatencyMs is the status request latency in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// CheckedAt is the timestamp of the poll that produced this snapshot.
	CheckedAt time.Time `json:"checked_at"`
}

// Store defines the interface for storing and subscribing to job snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a snapshot and notifies all subscribers.
	// Snapshots are keyed by ID, so subsequent updates replace previous values.
	Update(snap JobSnapshot)

	// GetAll returns all currently stored snapshots.
	// The returned slice is a copy; modifications do not affect the store.
	GetAll() []JobSnapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan JobSnapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan JobSnapshot)
}
