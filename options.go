package jobwatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPollInterval   = 3 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 5
	defaultBaseRetryDelay = 1 * time.Second
	defaultMaxRetryDelay  = 10 * time.Second
	defaultPort           = 8080
)

// wConfig holds mutable state during Watcher construction.
type wConfig struct {
	statusURL      string
	tokenSource    func() string
	pollInterval   time.Duration
	requestTimeout time.Duration
	maxRetries     int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
	port           int
	logger         *slog.Logger
	visibility     VisibilityProvider
}

// Option is a function that configures a [Watcher] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*wConfig) error

// WithStatusURL sets the base URL of the job-status endpoint. Required.
//
// The watcher polls <status-url>/<job-id> for each watched job. The URL
// must have a scheme (http:// or https://).
//
// Example:
//
//	w, err := jobwatch.New(
//	    jobwatch.WithStatusURL("https://api.example.com/api/jobs"),
//	)
func WithStatusURL(rawURL string) Option {
	return func(cfg *wConfig) error {
		if rawURL == "" {
			return errors.New("status URL cannot be empty")
		}
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid status URL: %w", err)
		}
		if parsed.Scheme == "" {
			return errors.New("status URL must have a scheme (http:// or https://)")
		}
		cfg.statusURL = strings.TrimRight(rawURL, "/")
		return nil
	}
}

// WithAuthToken sets a static bearer token sent with every poll request
// as an Authorization header.
//
// For tokens that rotate, use [WithTokenSource] instead. An empty token
// means no Authorization header is sent.
func WithAuthToken(token string) Option {
	return func(cfg *wConfig) error {
		cfg.tokenSource = func() string { return token }
		return nil
	}
}

// WithTokenSource sets a function consulted before each poll request for
// the current bearer token.
//
// Use this when credentials rotate during the process lifetime, so a
// refreshed token takes effect without restarting sessions. The source is
// called from polling goroutines and must be safe for concurrent use.
// Returning an empty string omits the Authorization header.
//
// Returns an error if the source is nil.
func WithTokenSource(source func() string) Option {
	return func(cfg *wConfig) error {
		if source == nil {
			return errors.New("token source cannot be nil")
		}
		cfg.tokenSource = source
		return nil
	}
}

// WithPollInterval sets the cadence of status polls for each watched job.
//
// The first poll of a session fires immediately; subsequent polls repeat
// at this interval. Defaults to 3 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout for status polls.
//
// A poll that exceeds the timeout counts as a transient failure. A hung
// request delays only that job's next poll; other jobs are unaffected.
// Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithMaxRetries sets how many consecutive transient failures a session
// tolerates before giving up and reporting [ErrRetriesExhausted].
//
// The counter resets on every successful poll. Defaults to 5.
//
// Returns an error if the value is negative.
func WithMaxRetries(n int) Option {
	return func(cfg *wConfig) error {
		if n < 0 {
			return errors.New("max retries cannot be negative")
		}
		cfg.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the bounds of the exponential retry backoff.
//
// After the n-th consecutive transient failure the session waits
// base * 2^(n-1), capped at max, before the next attempt. Defaults to
// 1 second base with a 10 second cap.
//
// Returns an error if base is not positive or max is below base.
func WithRetryDelay(base, max time.Duration) Option {
	return func(cfg *wConfig) error {
		if base <= 0 {
			return errors.New("base retry delay must be positive")
		}
		if max < base {
			return errors.New("max retry delay must be at least the base delay")
		}
		cfg.baseRetryDelay = base
		cfg.maxRetryDelay = max
		return nil
	}
}

// WithPort sets the TCP port for the status API served by [Watcher.Serve].
//
// Defaults to 8080. The port is unused unless Serve is called.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *wConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Watcher.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *wConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithVisibility sets the [VisibilityProvider] that gates delivery of the
// watcher's own observation errors.
//
// If not specified, the watcher behaves as always visible and every error
// is delivered.
//
// Returns an error if the provider is nil.
func WithVisibility(provider VisibilityProvider) Option {
	return func(cfg *wConfig) error {
		if provider == nil {
			return errors.New("visibility provider cannot be nil")
		}
		cfg.visibility = provider
		return nil
	}
}
