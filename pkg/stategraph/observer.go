package stategraph

import (
	"encoding/json"
	"time"
)

// Observer is a side channel notified at node and tool boundaries. The
// default is a no-op; external telemetry (tracing exporters, run stores)
// implements this interface and is attached with WithObserver.
//
// Observers must not block: the execution loop calls them inline.
type Observer interface {
	// OnNodeStart is called before a node runs, with a JSON view of its input state.
	OnNodeStart(nodeID string, input json.RawMessage)

	// OnNodeEnd is called after a node succeeds, with a JSON view of the merged state.
	OnNodeEnd(nodeID string, output json.RawMessage, duration time.Duration)

	// OnError is called when a node or the loop fails.
	OnError(nodeID string, err error)

	// OnToolCall is called before a tool executes inside an agent node.
	OnToolCall(nodeID, toolName string, args json.RawMessage)

	// OnToolResult is called after a tool executes inside an agent node.
	OnToolResult(nodeID, toolName string, result json.RawMessage)

	// OnCheckpointSaved is called after a checkpoint is durably written.
	OnCheckpointSaved(nodeID string)
}

// NoopObserver is an Observer that does nothing. Embed it to implement only
// the callbacks you care about.
type NoopObserver struct{}

func (NoopObserver) OnNodeStart(string, json.RawMessage)              {}
func (NoopObserver) OnNodeEnd(string, json.RawMessage, time.Duration) {}
func (NoopObserver) OnError(string, error)                            {}
func (NoopObserver) OnToolCall(string, string, json.RawMessage)       {}
func (NoopObserver) OnToolResult(string, string, json.RawMessage)     {}
func (NoopObserver) OnCheckpointSaved(string)                         {}

var _ Observer = NoopObserver{}

// stateJSON renders a state value for observer callbacks. Serialization
// failures degrade to a JSON error note rather than failing the run.
func stateJSON(state any) json.RawMessage {
	data, err := json.Marshal(state)
	if err != nil {
		return json.RawMessage(`{"error":"state not serializable"}`)
	}
	return data
}
