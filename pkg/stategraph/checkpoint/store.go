// Package checkpoint provides persistent execution snapshots for crash
// recovery and human-in-the-loop pauses. One execution thread owns a totally
// ordered history of checkpoints; "latest" is the record with the highest
// sequence number.
package checkpoint

import (
	"context"
	"errors"
)

// Store persists checkpoints per execution thread.
// Implementations must be safe for concurrent use: Save, Load, and List must
// each be atomic so concurrent writers of the same thread never observe a
// partial record.
type Store interface {
	// Save appends a checkpoint to the thread's history. The store assigns
	// the sequence number as one more than the thread's maximum existing
	// sequence, starting at 1, and writes it back to cp.
	Save(ctx context.Context, cp *Checkpoint) error

	// Load retrieves the latest checkpoint for a thread.
	// Returns ErrNotFound if the thread has no checkpoints.
	Load(ctx context.Context, threadID string) (*Checkpoint, error)

	// Close releases any resources (connections, files).
	Close() error
}

// HistoryStore is implemented by stores that can list a thread's timeline
// without materializing full state.
type HistoryStore interface {
	// List returns metadata for all checkpoints of a thread, ordered by
	// sequence. Returns an empty slice, not an error, for unknown threads.
	List(ctx context.Context, threadID string) ([]Metadata, error)
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a thread has no checkpoints.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrCorruptRecord indicates a history record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt checkpoint record")
)
