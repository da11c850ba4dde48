// Package server provides the HTTP status API for JobWatch.
//
// This package is internal to JobWatch. It serves the last observed job
// snapshots as JSON and streams updates over Server-Sent Events, backed by
// the internal store's pub/sub. There is no UI; rendering is the
// consumer's concern.
package server
