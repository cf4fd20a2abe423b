package stategraph

import (
	"encoding/json"
	"errors"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// UserNode is the synthetic node name attributed to checkpoints written by
// UpdateState rather than by graph execution.
const UserNode = "user"

// Resume continues a thread from its latest checkpoint. Unlike Run with
// WithAutoResume, Resume requires a checkpoint to exist: it returns
// ErrNoCheckpoints if the thread has no history.
//
// Only state is restored. Execution restarts from the entry node with a
// fresh safety guard; node and step history are not reconstructed.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithThreadID("session-1"))
//	result, err := compiled.Resume(ctx, stategraph.WithoutInterrupts())
func (cg *CompiledGraph[S]) Resume(ctx Context, opts ...RunOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	state, err := cg.loadCheckpointState(ctx)
	if err != nil {
		return zero, err
	}

	return cg.Run(ctx, state, opts...)
}

// GetState returns the latest checkpointed state for the context's thread.
// Returns ErrNoCheckpoints if the thread has no history.
func (cg *CompiledGraph[S]) GetState(ctx Context) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}
	return cg.loadCheckpointState(ctx)
}

// UpdateState merges an update into the latest checkpointed state and writes
// the result back as a new checkpoint attributed to the synthetic "user"
// node. This is the human-in-the-loop editing hook: interrupt the run,
// inspect with GetState, adjust with UpdateState, then Resume.
//
// The update is applied through the graph's merge rule, the same one used
// after each node.
func (cg *CompiledGraph[S]) UpdateState(ctx Context, update S) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}
	if cg.checkpointStore == nil {
		return zero, ErrNoCheckpointer
	}
	threadID := ctx.ThreadID()
	if threadID == "" {
		return zero, ErrThreadIDRequired
	}

	cp, err := cg.checkpointStore.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return zero, ErrNoCheckpoints
		}
		return zero, &CheckpointError{Op: "load", Err: err}
	}

	var current S
	if err := json.Unmarshal(cp.State, &current); err != nil {
		return zero, &CheckpointError{NodeID: cp.Node, Op: "decode", Err: err}
	}

	merged := mergeState(cg.reducer, current, update)

	stateBytes, err := json.Marshal(merged)
	if err != nil {
		return zero, &CheckpointError{NodeID: UserNode, Op: "serialize", Err: err}
	}

	next := checkpoint.New(threadID, UserNode, cp.Step, stateBytes)
	if err := cg.checkpointStore.Save(ctx, next); err != nil {
		observability.LogCheckpointError(ctx.Logger(), UserNode, "save", err)
		return zero, &CheckpointError{NodeID: UserNode, Op: "save", Err: err}
	}

	observability.LogCheckpoint(ctx.Logger(), UserNode, next.Sequence, len(stateBytes))
	return merged, nil
}

// History returns checkpoint metadata for the context's thread, oldest
// first. Requires a store implementing checkpoint.HistoryStore.
func (cg *CompiledGraph[S]) History(ctx Context) ([]checkpoint.Metadata, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if cg.checkpointStore == nil {
		return nil, ErrNoCheckpointer
	}
	hs, ok := cg.checkpointStore.(checkpoint.HistoryStore)
	if !ok {
		return nil, errors.New("stategraph: checkpoint store does not support history")
	}
	return hs.List(ctx, ctx.ThreadID())
}

// loadCheckpointState loads and decodes the latest checkpoint for the
// context's thread, failing with ErrNoCheckpoints when none exists.
func (cg *CompiledGraph[S]) loadCheckpointState(ctx Context) (S, error) {
	var zero S
	if cg.checkpointStore == nil {
		return zero, ErrNoCheckpointer
	}
	threadID := ctx.ThreadID()
	if threadID == "" {
		return zero, ErrThreadIDRequired
	}

	cp, err := cg.checkpointStore.Load(ctx, threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return zero, ErrNoCheckpoints
		}
		return zero, &CheckpointError{Op: "load", Err: err}
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, &CheckpointError{NodeID: cp.Node, Op: "decode", Err: err}
	}
	return state, nil
}
