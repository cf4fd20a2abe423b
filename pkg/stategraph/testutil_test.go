package stategraph

import (
	"context"
	"encoding/json"
	"time"
)

// Test state types used across tests

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int `json:"value"`
}

// State is a more complex state for testing various scenarios.
type State struct {
	Step     int      `json:"step"`
	Progress []string `json:"progress"`
	Output   string   `json:"output"`
	Done     bool     `json:"done"`
	GoLeft   bool     `json:"go_left"`
	Count    int      `json:"count"`
}

// logState opts into a custom merge rule: Progress entries accumulate.
type logState struct {
	Progress []string `json:"progress"`
	Count    int      `json:"count"`
}

func (s logState) Merge(update logState) logState {
	update.Progress = AppendSlice(s.Progress, update.Progress)
	return update
}

// Helper node functions

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// testCtxThread creates a test context with a fixed thread ID.
func testCtxThread(threadID string) Context {
	return NewContext(context.Background(), WithThreadID(threadID))
}

// recordingObserver captures observer callbacks for assertions.
type recordingObserver struct {
	NoopObserver

	starts      []string
	ends        []string
	errors      []string
	checkpoints []string
	toolCalls   []string
	toolResults []string
}

func (o *recordingObserver) OnNodeStart(nodeID string, _ json.RawMessage) {
	o.starts = append(o.starts, nodeID)
}

func (o *recordingObserver) OnNodeEnd(nodeID string, _ json.RawMessage, _ time.Duration) {
	o.ends = append(o.ends, nodeID)
}

func (o *recordingObserver) OnError(nodeID string, _ error) {
	o.errors = append(o.errors, nodeID)
}

func (o *recordingObserver) OnToolCall(nodeID, toolName string, _ json.RawMessage) {
	o.toolCalls = append(o.toolCalls, toolName)
}

func (o *recordingObserver) OnToolResult(nodeID, toolName string, _ json.RawMessage) {
	o.toolResults = append(o.toolResults, toolName)
}

func (o *recordingObserver) OnCheckpointSaved(nodeID string) {
	o.checkpoints = append(o.checkpoints, nodeID)
}
