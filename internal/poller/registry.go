package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Verdict is an attempt's instruction for what its session does next.
type Verdict int

const (
	// Continue means the poll succeeded and the job is still in flight:
	// reset the retry counter and wait one regular interval.
	Continue Verdict = iota

	// Retry means the poll failed transiently: wait a backoff delay and
	// try again, unless retries are exhausted.
	Retry

	// Done means the session is finished, either because the job reached
	// a terminal state or because the attempt classified a non-retryable
	// failure. The session is removed and no further attempts run.
	Done
)

// AttemptFunc performs one poll attempt for a job.
//
// The context is the session's context: it is cancelled when the session
// is stopped, so an attempt whose request was in flight at that moment can
// detect the stop and discard the response instead of dispatching it.
type AttemptFunc func(ctx context.Context) Verdict

// Options configures a [Registry].
type Options struct {
	// Interval is the regular cadence between successful polls.
	Interval time.Duration

	// MaxRetries is how many consecutive Retry verdicts a session
	// tolerates before giving up.
	MaxRetries int

	// BaseRetryDelay is the backoff delay after the first transient
	// failure; each further failure doubles it.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration

	// Logger receives session lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Registry owns at most one polling session per job id.
//
// Each session is a single goroutine driving a single timer, so poll
// attempts for one job are strictly sequential: a backoff retry replaces
// the next regular tick rather than racing it. Sessions for different
// jobs are fully independent.
//
// All methods are safe for concurrent use. The map of live sessions is
// the only shared state and is guarded by a mutex.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the per-job bookkeeping owned by the registry.
type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistry creates a [Registry] with the given options.
// Zero option fields fall back to conservative defaults.
func NewRegistry(opts Options) *Registry {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	if opts.BaseRetryDelay <= 0 {
		opts.BaseRetryDelay = time.Second
	}
	if opts.MaxRetryDelay < opts.BaseRetryDelay {
		opts.MaxRetryDelay = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// Start begins a polling session for the given job id.
//
// If a session already exists for the id it is stopped first, so Start is
// an idempotent restart: there is never more than one live session per id.
// The first attempt fires immediately from a background goroutine; Start
// itself does not block.
//
// onExhausted, if non-nil, is invoked once if consecutive transient
// failures exceed MaxRetries, after the session has been removed.
func (r *Registry) Start(id string, attempt AttemptFunc, onExhausted func()) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{id: id, ctx: ctx, cancel: cancel}

	r.mu.Lock()
	prev := r.sessions[id]
	r.sessions[id] = s
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	go r.run(s, attempt, onExhausted)
}

// Stop halts the session for the given job id, if one exists.
//
// The session's context is cancelled and its registry entry removed
// synchronously, so [Registry.Count] reflects the stop immediately. An
// attempt already executing observes the cancellation through its context
// and discards its outcome. Idempotent: stopping an unknown id is a no-op.
func (r *Registry) Stop(id string) {
	r.mu.Lock()
	s := r.sessions[id]
	if s != nil {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if s != nil {
		s.cancel()
	}
}

// Finish removes the session for id, provided ctx is that session's
// context.
//
// Attempts call Finish before dispatching terminal callbacks, so that
// [Registry.Count] reflects the stop by the time a callback observes it.
// The identity check makes Finish safe against a concurrent restart: an
// attempt left over from a replaced session cannot remove its successor.
func (r *Registry) Finish(id string, ctx context.Context) {
	r.mu.Lock()
	s := r.sessions[id]
	if s != nil && s.ctx == ctx {
		delete(r.sessions, id)
	} else {
		s = nil
	}
	r.mu.Unlock()

	if s != nil {
		s.cancel()
	}
}

// StopAll halts every live session.
func (r *Registry) StopAll() {
	r.mu.Lock()
	stopped := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		stopped = append(stopped, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stopped {
		s.cancel()
	}
}

// Count returns the number of live sessions. Diagnostics only.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// run is the session loop: one goroutine, one timer, strictly sequential
// attempts. Exits when the attempt returns Done, retries are exhausted,
// or the session is stopped.
func (r *Registry) run(s *session, attempt AttemptFunc, onExhausted func()) {
	defer s.cancel()

	retries := 0
	for {
		if s.ctx.Err() != nil {
			r.release(s)
			return
		}

		verdict := attempt(s.ctx)

		// stopped while the attempt ran; its outcome was discarded
		if s.ctx.Err() != nil {
			r.release(s)
			return
		}

		var wait time.Duration
		switch verdict {
		case Done:
			r.release(s)
			return

		case Retry:
			if retries >= r.opts.MaxRetries {
				r.release(s)
				r.opts.Logger.Warn("polling retries exhausted",
					"job_id", s.id,
					"retries", retries,
				)
				if onExhausted != nil {
					onExhausted()
				}
				return
			}
			wait = RetryDelay(retries, r.opts.BaseRetryDelay, r.opts.MaxRetryDelay)
			retries++
			r.opts.Logger.Debug("scheduling poll retry",
				"job_id", s.id,
				"attempt", retries,
				"delay", wait,
			)

		default: // Continue
			retries = 0
			wait = r.opts.Interval
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			timer.Stop()
			r.release(s)
			return
		}
	}
}

// release removes the session's registry entry, unless the entry was
// already replaced by a restart for the same id.
func (r *Registry) release(s *session) {
	r.mu.Lock()
	if r.sessions[s.id] == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()
}

// RetryDelay returns the backoff delay after n prior consecutive failures:
// base doubled n times, capped at max.
func RetryDelay(n int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
