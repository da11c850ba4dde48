// Package jobwatch provides a client-side polling state machine for
// tracking long-running background jobs exposed by a REST backend.
//
// JobWatch is designed as an SDK-first library: an application starts a
// background job through its own API, receives a job id, and hands that id
// to a [Watcher]. The Watcher polls the job-status endpoint on a fixed
// cadence, classifies each outcome, retries transient failures with capped
// exponential backoff, and reports progress and terminal results through
// caller-supplied callbacks.
//
// # Quick Start
//
// Create a Watcher pointed at your job-status endpoint and watch a job:
//
//	w, err := jobwatch.New(
//	    jobwatch.WithStatusURL("https://api.example.com/api/jobs"),
//	    jobwatch.WithAuthToken(os.Getenv("API_TOKEN")),
//	)
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//	defer w.Close()
//
//	w.Watch(jobID, jobwatch.Callbacks{
//	    OnUpdate:   func(u jobwatch.Update) { fmt.Println("progress:", u.Job.Progress) },
//	    OnComplete: func(j jobwatch.Job) { fmt.Println("done:", string(j.Result)) },
//	    OnError:    func(err error) { fmt.Println("failed:", err) },
//	})
//
// # Callback Contract
//
// For a single job id, callbacks fire in a well-defined order: zero or more
// OnUpdate calls, then at most one of OnComplete or OnError, never both and
// never more than once. A session stopped externally via [Watcher.Stop] or
// [Watcher.StopAll] fires no further callbacks, including for a response
// already in flight at the moment of the stop.
//
// # Error Reporting and Visibility
//
// Errors the watcher observes itself (expired credentials, unknown job ids,
// exhausted retries) are delivered only while the injected
// [VisibilityProvider] reports the consumer as visible; this suppresses
// error noise for backgrounded consumers without pausing the polling
// itself. Terminal results the server declares (a job finishing in the
// failed or cancelled state) are always delivered, because they are new
// information regardless of visibility. Session teardown is
// visibility-independent in every case.
//
// # Architecture
//
// JobWatch consists of several internal packages (under internal/):
//
//   - internal/poller: HTTP client and per-job session scheduling
//   - internal/store: in-memory latest-snapshot storage with pub/sub
//   - internal/server: HTTP status API with Server-Sent Events
//
// The internal packages are not part of the public API and may change
// without notice.
package jobwatch
