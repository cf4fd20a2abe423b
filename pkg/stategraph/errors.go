// Package stategraph provides a graph-based workflow engine for LLM agent
// applications: typed state, checkpoint persistence, safety guards, and a
// built-in tool-calling agent node.
package stategraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrMaxSteps indicates the execution loop reached its step limit.
	ErrMaxSteps = errors.New("max steps exceeded")

	// ErrCycleDetected indicates a node repeated within the recent-node window.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrInvalidEdge indicates routing resolved to an unknown node.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrInterrupted indicates execution stopped at a configured interrupt
	// point and can be resumed.
	ErrInterrupted = errors.New("execution interrupted")

	// ErrThreadIDRequired indicates checkpointing was enabled without a thread ID.
	ErrThreadIDRequired = errors.New("thread ID required for checkpointing")

	// ErrNoCheckpoints indicates no checkpoints exist for the thread.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrNoCheckpointer indicates a checkpoint operation was requested on a
	// graph without a configured store.
	ErrNoCheckpointer = errors.New("checkpointer not configured")
)

// NodeError wraps a node's own failure with node context, so node-logic
// errors are distinguishable from control-flow errors.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the node.
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports that the context was cancelled between nodes.
// Nodes themselves are never cancelled mid-flight; the loop checks before
// each node runs.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// Cause is the context's error (context.Canceled or DeadlineExceeded).
	Cause error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("execution cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the context error for errors.Is support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError wraps a conditional-edge routing failure.
type RouterError struct {
	// FromNode is the node whose router failed.
	FromNode string
	// Returned is the value the router returned.
	Returned string
	// Err is the underlying error.
	Err error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// MaxStepsError reports that the step limit was reached before the next node
// could run.
type MaxStepsError struct {
	// Limit is the configured step limit.
	Limit int
	// Reached is the step counter when the guard fired.
	Reached int
}

func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("max steps exceeded: reached %d, limit %d", e.Reached, e.Limit)
}

// Unwrap returns ErrMaxSteps for errors.Is support.
func (e *MaxStepsError) Unwrap() error {
	return ErrMaxSteps
}

// CycleError reports a node repeating within the recent-node window. This is
// an oscillation heuristic over recent history, not a topological cycle
// check: one visit per window is allowed.
type CycleError struct {
	// Node is the name that appeared twice within the window.
	Node string
	// Recent is the window contents at detection time, oldest first.
	Recent []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: node %q repeated in recent window [%s]",
		e.Node, strings.Join(e.Recent, " "))
}

// Unwrap returns ErrCycleDetected for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// CheckpointError wraps a checkpoint persistence failure. Save failures are
// always fatal to the run: a step that executed but was not recorded must
// never be resumed into.
type CheckpointError struct {
	// NodeID is the node whose checkpoint failed.
	NodeID string
	// Op is the operation that failed ("save", "load", "serialize").
	Op string
	// Err is the underlying error.
	Err error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// InterruptError is returned when execution stops at a static interrupt
// point. It carries a resumable snapshot: re-invoke with the carried state
// (or auto-resume from the checkpoint written before the stop).
type InterruptError struct {
	// Node is the node the interrupt fired on.
	Node string
	// Before is true for interrupt-before (the node has not run),
	// false for interrupt-after (the node ran and was checkpointed).
	Before bool
	// State is the state at the pause point (type-assert to the state type).
	State any
}

func (e *InterruptError) Error() string {
	if e.Before {
		return fmt.Sprintf("interrupted before node %s", e.Node)
	}
	return fmt.Sprintf("interrupted after node %s", e.Node)
}

// Unwrap returns ErrInterrupted for errors.Is support.
func (e *InterruptError) Unwrap() error {
	return ErrInterrupted
}
