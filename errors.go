package jobwatch

import "errors"

// Sentinel errors delivered through [Callbacks.OnError]. Wrap-aware:
// check them with [errors.Is].
var (
	// ErrInvalidJobID is reported synchronously by [Watcher.Watch] when
	// the job id is empty or one of the placeholder strings "undefined"
	// and "null", which upstream bugs produce when a missing id is
	// stringified. No session is created.
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrAuthRequired is reported when the status endpoint rejects the
	// watcher's credentials (HTTP 401). The session is stopped; the
	// caller should refresh its token and watch the job again.
	ErrAuthRequired = errors.New("authentication required: refresh credentials and retry")

	// ErrJobNotFound is reported when the backend does not know the job
	// id (HTTP 404 or an error body declaring the job missing).
	ErrJobNotFound = errors.New("job not found")

	// ErrJobFailed is reported when a poll succeeds but the job reached
	// the failed state. The backend's error_message is appended when
	// present.
	ErrJobFailed = errors.New("job failed")

	// ErrJobCancelled is reported when a poll succeeds but the job was
	// cancelled.
	ErrJobCancelled = errors.New("job was cancelled")

	// ErrRetriesExhausted is reported when consecutive transient poll
	// failures exceed the retry cap and the session gives up.
	ErrRetriesExhausted = errors.New("polling retries exhausted")
)
