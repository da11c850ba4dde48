// Package store provides in-memory storage of the latest job snapshots
// with pub/sub for real-time updates.
//
// This package is internal to JobWatch. The watcher writes a snapshot on
// every successful poll; the status server reads them back and streams
// updates to connected clients via Server-Sent Events.
package store
