// Package store provides append-only log storage backends for reel journals.
//
// A Store is an abstract, persistently ordered sequence of opaque binary
// records. Writers append; readers scan forward from the start, one record
// at a time. Readers are positional and independent: many readers may tail
// the same store concurrently without affecting each other, and records
// appended after a reader has caught up become visible to it on subsequent
// reads (live-tail).
//
// Four backends are provided:
//
//   - Memory: mutex-guarded in-process log for tests and volatile recordings
//   - File: segmented append-only files, the default journal backend
//   - SQLite: a single-table journal over database/sql
//   - NATS: a JetStream stream for server-backed durability
package store

import "context"

// Reader is a forward-only cursor over a store's records.
//
// Readers are not safe for concurrent use; each replay subscription owns
// exactly one reader.
type Reader interface {
	// ReadNext returns the next record, or ok=false when the reader has
	// caught up to the end of the store. It never blocks waiting for new
	// data; the caller decides how to wait. A later append is returned by
	// a subsequent ReadNext call at the same position.
	ReadNext(ctx context.Context) (data []byte, ok bool, err error)

	// Close releases the reader's resources.
	Close() error
}

// Store is an append-only ordered log of binary records.
//
// Append and OpenReader are safe for concurrent use.
type Store interface {
	// Append adds one record at the end of the log.
	Append(ctx context.Context, data []byte) error

	// OpenReader returns a new reader positioned at the start of the log.
	OpenReader() (Reader, error)

	// Close releases the store's resources. Readers opened earlier may
	// fail after Close.
	Close() error
}
