// Package itemstore provides an embedded, single-process, persistent object
// store mapping opaque 64-bit identifiers to variable-length byte payloads.
//
// Items are kept durable across restarts in three on-disk files: a file of
// fixed-size description slots, a file of raw payload bytes, and an 8-byte
// id counter. An in-memory index and per-item cache sit in front of the
// files so repeated reads avoid disk I/O. All operations work through a
// single shared staging Buffer; the store is not safe for concurrent use
// from multiple goroutines.
package itemstore

import "errors"

// Sentinel errors returned by store operations. These are error kinds, not
// types: callers compare with errors.Is, and I/O failures are wrapped with
// %w so the underlying cause is still reachable.
var (
	// ErrNotFound is returned when an operation references an unknown id.
	ErrNotFound = errors.New("itemstore: no such item")

	// ErrClosed is returned for any operation on a closed store.
	ErrClosed = errors.New("itemstore: store is closed")

	// ErrInvalidArgument is returned for malformed caller input: a
	// zero-length allocation request, an empty configuration string, or a
	// non-positive size.
	ErrInvalidArgument = errors.New("itemstore: invalid argument")

	// ErrInvalidState is returned when a Buffer read is attempted while in
	// write mode, or vice versa.
	ErrInvalidState = errors.New("itemstore: invalid buffer state")

	// ErrIo wraps underlying filesystem errors. Use errors.Is(err, ErrIo)
	// to detect any I/O failure regardless of the specific os/syscall
	// error wrapped beneath it.
	ErrIo = errors.New("itemstore: i/o error")

	// ErrCorruption indicates an on-disk or free-space invariant was
	// violated: a description referencing a range beyond the data file's
	// length, overlapping free ranges, or a release of a range that isn't
	// contained in the data file. These indicate a bug elsewhere in the
	// store, not a caller mistake.
	ErrCorruption = errors.New("itemstore: corruption detected")

	// ErrLocked is returned by Open when another instance already holds
	// the advisory lock on the store directory.
	ErrLocked = errors.New("itemstore: store directory is locked")

	// ErrNotLoaded is returned by the in-memory index when a cache entry
	// exists but its payload has not been read from disk yet. Store
	// methods handle this internally; callers of Store never see it.
	ErrNotLoaded = errors.New("itemstore: item payload not loaded")
)
