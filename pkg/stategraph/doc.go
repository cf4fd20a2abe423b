/*
Package stategraph provides graph-based workflow execution for LLM agent
applications.

# Overview

stategraph is a Go library for building and executing directed graphs where
nodes transform a typed state and edges define flow. It is designed for
stateful, LLM-driven workflows with features like checkpoint persistence,
conditional routing, safety guards against runaway loops, and a built-in
tool-calling agent node.

The library combines:
  - Type-safe generics for state management
  - Compile-time validation of graph structure
  - Append-only checkpointing with resume
  - Step-limit and cycle-detection guards
  - A ReAct agent node driving any tool-calling model
  - OpenTelemetry integration for observability

# Basic Usage

Create a graph with nodes and edges, then compile and run:

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx stategraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	func main() {
	    graph := stategraph.NewGraph[State]().
	        AddNode("process", process).
	        AddEdge("process", stategraph.END).
	        SetEntry("process")

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := stategraph.NewContext(context.Background())
	    result, err := compiled.Run(ctx, State{Input: "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.Output) // "Processed: hello"
	}

# State Merging

After each node, the returned update is merged into the current state. The
default rule is last-write-wins: the update replaces the state. Override it
per graph with WithReducer, or implement Merger on the state type:

	func (s State) Merge(update State) State {
	    update.Log = append(s.Log, update.Log...)
	    return update
	}

A graph-level reducer takes precedence over the state's own Merge method.

# Conditional Branching and Loops

Use conditional edges for decision points; loop by routing back to an
earlier node:

	graph.AddConditionalEdge("attempt", func(ctx stategraph.Context, s State) string {
	    if s.Success || s.Attempts >= 3 {
	        return "cleanup"
	    }
	    return "attempt" // Loop back
	})

Runs are bounded by a step limit (default 50) and cycle detection over a
recent-node window (default 20, one visit per window allowed). Both are
configurable per graph with WithDefaultConfig and per invocation with
WithMaxSteps, WithCycleDetection, and WithCycleWindow.

# Checkpointing and Resume

Attach a checkpoint store to persist state after every node:

	store := checkpoint.NewFileStore("./checkpoints")
	defer store.Close()

	graph.WithCheckpointer(store)
	ctx := stategraph.NewContext(context.Background(),
	    stategraph.WithThreadID("session-42"))

	result, err := compiled.Run(ctx, state)

	// After a crash, same thread ID:
	result, err = compiled.Run(ctx, state, stategraph.WithAutoResume())

Each thread's history is append-only; resume loads the latest checkpoint's
state and restarts the loop from the entry node. Checkpoint save failures
halt the run immediately. FileStore (JSONL, one file per thread),
MemoryStore, and SQLiteStore are provided.

# Interrupts

Pause execution at designed points for human review:

	graph.WithInterruptBefore("apply_changes")

	_, err := compiled.Run(ctx, state) // returns *InterruptError
	current, _ := compiled.GetState(ctx)
	_, _ = compiled.UpdateState(ctx, edited)
	result, err := compiled.Resume(ctx, stategraph.WithoutInterrupts())

# Agent Nodes

The react subpackage provides a tool-calling agent that plugs in as an
ordinary node:

	agent, err := react.NewNode[AgentState]().
	    Model(openai.NewModel()).
	    Tools(search, calculator).
	    Build()

	graph.AddNode("agent", agent.Run)

# Error Handling

Errors carry the failing node and unwrap to sentinels:

	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}
	if errors.Is(err, stategraph.ErrMaxSteps) {
	    // guard fired
	}

Panics in nodes are recovered and converted to PanicError with stack trace.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Checkpoint stores are safe for concurrent use; per-thread appends are atomic

# Subpackages

  - checkpoint: checkpoint stores (file, memory, SQLite)
  - llm: model and tool contracts, OpenAI/Anthropic adapters
  - react: tool-calling agent node
  - observability: logging, metrics, and tracing helpers
  - config: typed configuration loading
*/
package stategraph
