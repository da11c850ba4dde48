package store

import (
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage with a publish-subscribe
// mechanism for real-time updates. Snapshots are keyed by job id, with new
// snapshots replacing previous values.
//
// Subscribers receive updates via buffered channels (buffer size 100).
// Updates are sent non-blocking; if a subscriber's buffer is full, the
// update is dropped for that subscriber to prevent blocking the watcher.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[string]JobSnapshot
	subscribers map[chan JobSnapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots:   make(map[string]JobSnapshot),
		subscribers: make(map[chan JobSnapshot]struct{}),
	}
}

// Update stores a [JobSnapshot] and notifies all subscribers.
//
// The snapshot is stored using its ID as the key. Subsequent updates with
// the same id replace the previous value. All subscribers receive the
// update (unless their buffer is full).
func (m *MemoryStore) Update(snap JobSnapshot) {
	m.mu.Lock()
	m.snapshots[snap.ID] = snap
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// GetAll returns a snapshot of all currently stored job states.
//
// The returned slice is a copy; modifications do not affect the store.
// Order is not guaranteed.
func (m *MemoryStore) GetAll() []JobSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]JobSnapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		results = append(results, snap)
	}
	return results
}

// Get returns the stored snapshot for a job id, if any.
func (m *MemoryStore) Get(id string) (JobSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[id]
	return snap, ok
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan JobSnapshot {
	ch := make(chan JobSnapshot, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown
// channel.
func (m *MemoryStore) Unsubscribe(ch <-chan JobSnapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// message is dropped for that subscriber rather than blocking the watcher.
func (m *MemoryStore) notifySubscribers(snap JobSnapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the message
		}
	}
}
