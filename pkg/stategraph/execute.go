package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
// On a static interrupt, returns the state at the pause point together with
// an *InterruptError; re-invoke (typically with WithAutoResume) to continue.
//
// Execution flow per step:
//  1. Safety guard (step limit, cycle detection)
//  2. interrupt_before check
//  3. Execute the node, merge its update into state
//  4. Save a checkpoint if a store is configured (save failure is fatal)
//  5. Route via the node's router, else its first unconditional edge,
//     else the run is complete
//  6. interrupt_after check
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithThreadID("session-1"))
//	result, err := compiled.Run(ctx, initialState)
//	if err != nil {
//	    // result contains state at point of failure
//	}
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := newRunConfig(cg.defaultConfig, opts)

	obs := cfg.observer
	if obs == nil {
		obs = cg.observer
	}
	if obs == nil {
		obs = ctx.Observer()
	}
	if obs == nil {
		obs = NoopObserver{}
	}

	logger := ctx.Logger()
	threadID := ctx.ThreadID()

	if cg.checkpointStore != nil && threadID == "" {
		return state, ErrThreadIDRequired
	}

	if cfg.autoResume {
		restored, err := cg.loadLatestState(ctx, state)
		if err != nil {
			return state, err
		}
		state = restored
	}

	startTime := time.Now()
	observability.LogRunStart(logger, threadID, cg.entryPoint)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "stategraph", threadID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var steps int
	result, steps, runErr = cg.runLoop(execCtx, ctx, state, cg.entryPoint, &cfg, obs)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())

	cfg.metrics.RecordGraphRun(ctx, runErr == nil, duration)

	switch err := runErr.(type) {
	case nil:
		observability.LogRunComplete(logger, threadID, durationMs, steps)
	case *InterruptError:
		observability.LogRunInterrupted(logger, threadID, err.Node, err.Before)
	default:
		observability.LogRunError(logger, threadID, runErr, durationMs, lastNodeOf(runErr))
	}

	return result, runErr
}

// lastNodeOf extracts the node a run error is attributed to, for logging.
func lastNodeOf(err error) string {
	switch e := err.(type) {
	case *NodeError:
		return e.NodeID
	case *PanicError:
		return e.NodeID
	case *RouterError:
		return e.FromNode
	case *CheckpointError:
		return e.NodeID
	case *CancellationError:
		return e.NodeID
	case *CycleError:
		return e.Node
	}
	return ""
}

// loadLatestState loads the most recent checkpoint for the context's thread
// and deserializes its state. If no checkpoint exists, the fallback
// (caller-supplied) state is returned unchanged.
func (cg *CompiledGraph[S]) loadLatestState(ctx Context, fallback S) (S, error) {
	if cg.checkpointStore == nil {
		return fallback, ErrNoCheckpointer
	}

	cp, err := cg.checkpointStore.Load(ctx, ctx.ThreadID())
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fallback, nil
		}
		return fallback, &CheckpointError{Op: "load", Err: err}
	}

	var restored S
	if err := json.Unmarshal(cp.State, &restored); err != nil {
		return fallback, &CheckpointError{NodeID: cp.Node, Op: "decode", Err: err}
	}

	observability.LogResume(ctx.Logger(), ctx.ThreadID(), cp.Sequence, cp.Node)
	return restored, nil
}

// runLoop drives the graph one node at a time until END, an interrupt, or
// an error. Returns the final state, the number of completed steps, and any
// error. tracingCtx carries span context; ctx is the stategraph Context.
func (cg *CompiledGraph[S]) runLoop(tracingCtx context.Context, ctx Context, state S, startNode string, cfg *runConfig, obs Observer) (S, int, error) {
	g := newGuard(cfg.exec)
	current := startNode

	for current != END {
		if err := g.beforeNode(current); err != nil {
			obs.OnError(current, err)
			return state, g.steps, err
		}

		// Cancellation is only honored between nodes; a running node is
		// never cut off mid-flight.
		select {
		case <-ctx.Done():
			return state, g.steps, &CancellationError{NodeID: current, Cause: ctx.Err()}
		default:
		}

		if !cfg.noInterrupts && cg.interruptBefore[current] {
			if cg.checkpointStore != nil {
				if err := cg.saveCheckpoint(ctx, cfg, obs, current, g.steps, state); err != nil {
					return state, g.steps, err
				}
			}
			return state, g.steps, &InterruptError{Node: current, Before: true, State: state}
		}

		nodeCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			nodeCtx = ec.forNode(current, g.remaining(), obs)
		}

		obs.OnNodeStart(current, stateJSON(state))
		observability.LogNodeStart(nodeCtx.Logger(), current, g.steps+1)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		update, nodeErr := cg.executeNode(nodeCtx, current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			obs.OnError(current, nodeErr)
			observability.LogNodeError(nodeCtx.Logger(), current, nodeErr)
			return state, g.steps, nodeErr
		}

		state = mergeState(cg.reducer, state, update)

		if cg.checkpointStore != nil {
			if err := cg.saveCheckpoint(ctx, cfg, obs, current, g.steps+1, state); err != nil {
				obs.OnError(current, err)
				return state, g.steps, err
			}
		}

		obs.OnNodeEnd(current, stateJSON(state), nodeDuration)
		observability.LogNodeComplete(nodeCtx.Logger(), current, float64(nodeDuration.Milliseconds()))

		next, err := cg.nextNode(nodeCtx, state, current)
		if err != nil {
			obs.OnError(current, err)
			return state, g.steps, err
		}

		if !cfg.noInterrupts && cg.interruptAfter[current] && next != END {
			return state, g.steps + 1, &InterruptError{Node: current, Before: false, State: state}
		}

		g.afterNode()
		current = next
	}

	return state, g.steps, nil
}

// saveCheckpoint serializes the state and persists one checkpoint record.
// Any failure is fatal to the run: a step that executed but was not
// recorded must never be resumed into.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, obs Observer, nodeID string, step int, state S) error {
	stateBytes, err := json.Marshal(state)
	if err != nil {
		observability.LogCheckpointError(ctx.Logger(), nodeID, "serialize", err)
		return &CheckpointError{NodeID: nodeID, Op: "serialize", Err: err}
	}

	cp := checkpoint.New(ctx.ThreadID(), nodeID, step, stateBytes)
	if err := cg.checkpointStore.Save(ctx, cp); err != nil {
		observability.LogCheckpointError(ctx.Logger(), nodeID, "save", err)
		return &CheckpointError{NodeID: nodeID, Op: "save", Err: err}
	}

	observability.LogCheckpoint(ctx.Logger(), nodeID, cp.Sequence, len(stateBytes))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(stateBytes)))
	obs.OnCheckpointSaved(nodeID)
	return nil
}

// executeNode runs a single node with panic recovery.
// On failure the pre-node state is returned; updates only apply on success.
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable if compilation succeeded.
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    ErrNodeNotFound,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(ctx, state)
	if err != nil {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// A node's router is evaluated before its unconditional edges; a node with
// neither completes the run.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		next := router(ctx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidEdge,
			}
		}

		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrInvalidEdge,
				}
			}
		}

		return next, nil
	}

	edges := cg.getEdges(current)
	if len(edges) == 0 {
		// No outgoing edges: the run is complete.
		return END, nil
	}

	return edges[0], nil
}
