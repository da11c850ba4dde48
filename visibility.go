package jobwatch

import "sync/atomic"

// VisibilityProvider reports whether the watcher's consumer is currently
// able to surface messages to a user.
//
// Polling continues unconditionally while the consumer is hidden, so state
// stays fresh; only the delivery of the watcher's own observation errors
// (auth failures, unknown job ids, exhausted retries) is gated on
// visibility. Server-declared terminal failures are always delivered.
//
// Implementations must be safe for concurrent use: Visible is called from
// polling goroutines.
type VisibilityProvider interface {
	// Visible reports whether error callbacks should be delivered.
	Visible() bool
}

// VisibilityFlag is a thread-safe [VisibilityProvider] backed by an atomic
// boolean. The zero value reports visible.
//
// Bind it to whatever the host environment exposes, for example toggling
// it from a page-visibility or window-focus event:
//
//	var vis jobwatch.VisibilityFlag
//	w, _ := jobwatch.New(
//	    jobwatch.WithStatusURL(url),
//	    jobwatch.WithVisibility(&vis),
//	)
//	onVisibilityChange(func(hidden bool) { vis.Set(!hidden) })
type VisibilityFlag struct {
	hidden atomic.Bool
}

// Set records the current visibility.
func (f *VisibilityFlag) Set(visible bool) {
	f.hidden.Store(!visible)
}

// Visible implements [VisibilityProvider].
func (f *VisibilityFlag) Visible() bool {
	return !f.hidden.Load()
}

// alwaysVisible is the default provider: every error is delivered.
type alwaysVisible struct{}

func (alwaysVisible) Visible() bool { return true }
