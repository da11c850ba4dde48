// Package poller provides the scheduling and transport machinery for
// JobWatch's per-job polling sessions.
//
// This package is internal to JobWatch. It knows nothing about job
// payloads: the [Registry] drives caller-supplied attempt functions on a
// fixed cadence with capped exponential backoff, and the [Client] performs
// the HTTP requests those attempts need.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [Registry]: per-job session lifecycle, retry accounting, backoff
//   - [Verdict]: an attempt's instruction for what the session does next
//
// Users of the jobwatch library should not need to interact with this
// package directly.
package poller
