package jobwatch

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
)

// Callbacks receives the outcomes of a watched job.
//
// Any member may be nil, in which case that outcome is simply not
// delivered. Callbacks are invoked from the job's polling goroutine, one
// at a time, so they must not block for long: a slow callback delays that
// job's next poll (other jobs are unaffected).
//
// Panics inside callbacks are recovered and logged with a correlation id;
// they never crash the watcher.
type Callbacks struct {
	// OnUpdate fires on every successful poll, terminal or not.
	OnUpdate func(Update)

	// OnComplete fires exactly once, after the session has stopped, when
	// the job reaches the completed state.
	OnComplete func(Job)

	// OnError fires at most once per session, after the session has
	// stopped: for a job finishing in the failed or cancelled state, or
	// for a watcher-side failure (bad id, auth rejection, unknown job,
	// exhausted retries).
	OnError func(error)
}

// invokeSafe runs a callback with panic recovery.
// If the callback panics, the full stack trace is logged with a correlation
// ID so user reports can be matched to server-side logs.
func invokeSafe(logger *slog.Logger, jobID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job callback panicked",
				"correlation_id", uuid.NewString(),
				"job_id", jobID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
