package jobwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/jobwatch/internal/poller"
	"github.com/jpalmerr/jobwatch/internal/server"
	"github.com/jpalmerr/jobwatch/internal/store"
)

// Watcher maintains zero or more independent per-job polling sessions
// against a job-status endpoint.
//
// Watcher translates raw HTTP outcomes into a three-way classification
// (progress update, terminal success, terminal failure), retries transient
// failures with capped exponential backoff, and guarantees bounded
// resource usage: every session's timer and goroutine are released on any
// exit path, and there is never more than one session per job id.
//
// A Watcher is intended to be owned by the application's composition root
// and shared; all methods are safe for concurrent use. Create one with
// [New] and release it with [Watcher.Close].
//
// Watch, Stop, StopAll, and CleanupStale never return errors to the
// caller: all failures are funneled through the [Callbacks.OnError]
// contract, and the caller decides whether to surface them or restart.
type Watcher struct {
	statusURL      string
	tokenSource    func() string
	requestTimeout time.Duration
	port           int
	logger         *slog.Logger
	visibility     VisibilityProvider

	client    *poller.Client
	registry  *poller.Registry
	snapshots *store.MemoryStore
}

// New creates a [Watcher] with the given options.
//
// The job-status endpoint must be configured via [WithStatusURL]. Other
// options have sensible defaults:
//   - Poll interval: 3 seconds
//   - Request timeout: 10 seconds
//   - Max retries: 5, backoff 1s doubling up to 10s
//   - Status API port: 8080
//
// Returns an error if no status URL is configured or any option is
// invalid.
//
// Example:
//
//	w, err := jobwatch.New(
//	    jobwatch.WithStatusURL("https://api.example.com/api/jobs"),
//	    jobwatch.WithPollInterval(5 * time.Second),
//	)
func New(opts ...Option) (*Watcher, error) {
	cfg := &wConfig{
		pollInterval:   defaultPollInterval,
		requestTimeout: defaultRequestTimeout,
		maxRetries:     defaultMaxRetries,
		baseRetryDelay: defaultBaseRetryDelay,
		maxRetryDelay:  defaultMaxRetryDelay,
		port:           defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.statusURL == "" {
		return nil, fmt.Errorf("a status URL is required (use WithStatusURL)")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	visibility := cfg.visibility
	if visibility == nil {
		visibility = alwaysVisible{}
	}

	return &Watcher{
		statusURL:      cfg.statusURL,
		tokenSource:    cfg.tokenSource,
		requestTimeout: cfg.requestTimeout,
		port:           cfg.port,
		logger:         logger,
		visibility:     visibility,
		client:         poller.NewClient(),
		registry: poller.NewRegistry(poller.Options{
			Interval:       cfg.pollInterval,
			MaxRetries:     cfg.maxRetries,
			BaseRetryDelay: cfg.baseRetryDelay,
			MaxRetryDelay:  cfg.maxRetryDelay,
			Logger:         logger,
		}),
		snapshots: store.NewMemoryStore(),
	}, nil
}

// Watch begins polling the status of the given job id.
//
// The first poll fires immediately with no initial delay, then repeats at
// the configured interval. If a session already exists for the id it is
// stopped first, so Watch is an idempotent restart.
//
// A malformed id - empty, "undefined", or "null" - is rejected
// synchronously: cb.OnError is invoked with [ErrInvalidJobID] and no
// session is created.
func (w *Watcher) Watch(jobID string, cb Callbacks) {
	if !validJobID(jobID) {
		w.logger.Warn("rejected malformed job id", "job_id", jobID)
		w.dispatchError(cb, jobID, fmt.Errorf("%w: %q", ErrInvalidJobID, jobID))
		return
	}

	w.logger.Debug("watching job", "job_id", jobID)
	w.registry.Start(jobID,
		func(ctx context.Context) poller.Verdict {
			return w.pollOnce(ctx, jobID, cb)
		},
		func() {
			w.reportObservationFailure(cb, jobID,
				fmt.Errorf("%w: job %s", ErrRetriesExhausted, jobID))
		},
	)
}

// Stop halts polling for the given job id.
//
// The session's timer is released, its retry counter discarded, and its
// registry entry removed. No further callbacks fire for the id, including
// for a response already in flight. Idempotent: stopping an unknown id is
// a no-op.
func (w *Watcher) Stop(jobID string) {
	w.registry.Stop(jobID)
}

// StopAll halts every active polling session.
//
// Call this on application teardown so no session goroutines or timers
// outlive their consumer.
func (w *Watcher) StopAll() {
	w.registry.StopAll()
}

// ActiveCount returns the number of live polling sessions.
// Diagnostics only.
func (w *Watcher) ActiveCount() int {
	return w.registry.Count()
}

// CleanupStale forcibly stops every session if any are live.
//
// This is a recovery hatch for when the caller's own bookkeeping disagrees
// with the watcher's session count: rather than reconcile, drop everything
// and let the caller re-watch what it still cares about.
func (w *Watcher) CleanupStale() {
	if n := w.registry.Count(); n > 0 {
		w.logger.Warn("cleaning up stale polling sessions", "count", n)
		w.registry.StopAll()
	}
}

// Close stops all sessions and releases the HTTP connection pool.
// The Watcher remains usable afterwards, but Close should be the last call
// in the normal lifecycle.
func (w *Watcher) Close() {
	w.registry.StopAll()
	w.client.Close()
}

// Serve exposes the status API (JSON snapshots plus an SSE stream) on the
// configured port.
//
// Serve blocks until the context is cancelled, then shuts the server down
// gracefully. Returns an error if the server fails to bind.
func (w *Watcher) Serve(ctx context.Context) error {
	srv := server.NewServer(w.snapshots, w.port, w.logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("status api available", "url", fmt.Sprintf("http://localhost:%d/api/jobs", w.port))
	<-ctx.Done()
	return nil
}

// pollOnce performs a single poll attempt for a job and classifies the
// outcome into the session verdict.
func (w *Watcher) pollOnce(ctx context.Context, jobID string, cb Callbacks) poller.Verdict {
	resp := w.client.Fetch(ctx, w.jobURL(jobID), w.headers(), w.requestTimeout)

	// session stopped while the request was in flight: discard the
	// response, whatever it was
	if ctx.Err() != nil {
		return poller.Done
	}

	// a failed body read is transient unless the status code alone is
	// conclusive: 401 and 404 are classified below regardless of the body
	if resp.Error != nil &&
		resp.StatusCode != http.StatusUnauthorized &&
		resp.StatusCode != http.StatusNotFound {
		w.logger.Debug("poll request failed", "job_id", jobID, "error", resp.Error)
		return poller.Retry
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		w.registry.Finish(jobID, ctx)
		w.reportObservationFailure(cb, jobID, ErrAuthRequired)
		return poller.Done

	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode >= 400 && bodyDeclaresNotFound(resp.Body):
		w.registry.Finish(jobID, ctx)
		w.reportObservationFailure(cb, jobID, fmt.Errorf("%w: %s", ErrJobNotFound, jobID))
		return poller.Done

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		w.logger.Debug("poll returned unexpected status",
			"job_id", jobID, "status_code", resp.StatusCode)
		return poller.Retry
	}

	var job Job
	if err := json.Unmarshal(resp.Body, &job); err != nil {
		w.logger.Debug("poll returned malformed body", "job_id", jobID, "error", err)
		return poller.Retry
	}
	if !job.Status.valid() {
		w.logger.Debug("poll returned unknown job status",
			"job_id", jobID, "status", string(job.Status))
		return poller.Retry
	}
	if job.ID == "" {
		job.ID = jobID
	}

	// persist the snapshot before any callback observes it
	w.snapshots.Update(snapshotOf(job, resp.Latency))

	switch job.Status {
	case StatusCompleted:
		w.registry.Finish(jobID, ctx)
		w.dispatchUpdate(cb, job)
		w.dispatchComplete(cb, job)
		return poller.Done

	case StatusFailed:
		// a successful poll carrying bad news: always delivered,
		// visibility notwithstanding
		w.registry.Finish(jobID, ctx)
		w.dispatchUpdate(cb, job)
		w.dispatchError(cb, job.ID, failureError(job))
		return poller.Done

	case StatusCancelled:
		w.registry.Finish(jobID, ctx)
		w.dispatchUpdate(cb, job)
		w.dispatchError(cb, job.ID, ErrJobCancelled)
		return poller.Done

	default: // pending or running
		w.dispatchUpdate(cb, job)
		return poller.Continue
	}
}

// jobURL builds the status URL for a job id.
func (w *Watcher) jobURL(jobID string) string {
	return w.statusURL + "/" + jobID
}

// headers builds the request headers, including the bearer token when a
// source is configured.
func (w *Watcher) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if w.tokenSource != nil {
		if token := w.tokenSource(); token != "" {
			h["Authorization"] = "Bearer " + token
		}
	}
	return h
}

// reportObservationFailure delivers an error the watcher observed itself,
// gated on consumer visibility. The session-level consequences have
// already happened by the time this runs; only callback delivery is gated.
func (w *Watcher) reportObservationFailure(cb Callbacks, jobID string, err error) {
	if !w.visibility.Visible() {
		w.logger.Debug("suppressing error while hidden", "job_id", jobID, "error", err)
		return
	}
	w.dispatchError(cb, jobID, err)
}

func (w *Watcher) dispatchUpdate(cb Callbacks, job Job) {
	if cb.OnUpdate == nil {
		return
	}
	u := updateFor(job)
	invokeSafe(w.logger, job.ID, func() { cb.OnUpdate(u) })
}

func (w *Watcher) dispatchComplete(cb Callbacks, job Job) {
	if cb.OnComplete == nil {
		return
	}
	invokeSafe(w.logger, job.ID, func() { cb.OnComplete(job) })
}

func (w *Watcher) dispatchError(cb Callbacks, jobID string, err error) {
	if cb.OnError == nil {
		return
	}
	invokeSafe(w.logger, jobID, func() { cb.OnError(err) })
}

// validJobID rejects empty ids and the placeholder strings a missing id
// stringifies to upstream.
func validJobID(jobID string) bool {
	switch jobID {
	case "", "undefined", "null":
		return false
	default:
		return true
	}
}

// bodyDeclaresNotFound reports whether an error body declares the job
// missing, for backends that return a generic status code with a
// descriptive message.
func bodyDeclaresNotFound(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body), []byte("not found"))
}

// failureError builds the error delivered for a job in the failed state,
// carrying the backend's error_message when present.
func failureError(job Job) error {
	if job.ErrorMessage != "" {
		return fmt.Errorf("%w: %s", ErrJobFailed, job.ErrorMessage)
	}
	return ErrJobFailed
}

// snapshotOf converts a decoded job into its stored representation.
func snapshotOf(job Job, latency time.Duration) store.JobSnapshot {
	var errStr *string
	if job.ErrorMessage != "" {
		s := job.ErrorMessage
		errStr = &s
	}

	return store.JobSnapshot{
		ID:        job.ID,
		Status:    job.Status.String(),
		Progress:  job.Progress,
		Message:   job.Message,
		Error:     errStr,
		LatencyMs: latency.Milliseconds(),
		CheckedAt: time.Now(),
	}
}
