package checkpoint

import (
	"encoding/json"
	"time"
)

// Checkpoint is the persisted snapshot of one execution thread.
// It contains everything needed to resume: the serialized state plus
// sequencing metadata. Sequence and CreatedAt are assigned by the store
// at save time.
type Checkpoint struct {
	ThreadID  string    `json:"thread_id"`
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`

	// Node is the last node that executed before this snapshot was taken.
	Node string `json:"node"`
	// Step is the execution loop's step counter at save time.
	Step int `json:"step"`

	// State is the application state, already JSON-serialized.
	State json.RawMessage `json:"state"`
}

// New creates a checkpoint for a thread. Sequence and CreatedAt are zero
// until assigned by a Store.
func New(threadID, node string, step int, state json.RawMessage) *Checkpoint {
	return &Checkpoint{
		ThreadID: threadID,
		Node:     node,
		Step:     step,
		State:    state,
	}
}

// Metadata is the projection of a checkpoint used for history listings.
// It omits the state so timelines can be rendered without full
// deserialization.
type Metadata struct {
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}
