package stategraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := stategraph.NewGraph[MyState]().
//	    AddNode("fetch", fetchNode).
//	    AddNode("process", processNode).
//	    AddEdge("fetch", "process").
//	    AddEdge("process", stategraph.END).
//	    SetEntry("fetch")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string

	reducer         MergeFunc[S]
	defaultConfig   ExecutionConfig
	checkpointStore checkpoint.Store
	observer        Observer
	interruptBefore []string
	interruptAfter  []string
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
		defaultConfig:    DefaultExecutionConfig(),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	// Check reserved words (case-insensitive)
	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("stategraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or stategraph.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc
// determines the next node at runtime based on state.
// Returns the graph for method chaining.
//
// The router function should return a valid node ID or stategraph.END.
// Returning an empty string or unknown node ID causes a runtime error.
//
// A node's router is evaluated before its unconditional edges.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}

// WithReducer sets a custom merge rule combining each node's returned update
// with the prior state. Without it, an update replaces the state
// (last-write-wins), unless S implements Merger[S].
func (g *Graph[S]) WithReducer(reducer MergeFunc[S]) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.reducer = reducer
	return g
}

// WithDefaultConfig sets the graph-level safety guard defaults.
// Per-invocation RunOptions override these.
func (g *Graph[S]) WithDefaultConfig(cfg ExecutionConfig) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.defaultConfig = cfg
	return g
}

// WithCheckpointer attaches a checkpoint store. Every invocation with a
// thread ID then persists state after each node, and can resume from the
// latest checkpoint.
func (g *Graph[S]) WithCheckpointer(store checkpoint.Store) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkpointStore = store
	return g
}

// WithObserver attaches an observer notified at node and tool boundaries.
func (g *Graph[S]) WithObserver(obs Observer) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.observer = obs
	return g
}

// WithInterruptBefore stops execution, resumably, whenever one of the named
// nodes is about to run. The pending node does not execute.
func (g *Graph[S]) WithInterruptBefore(nodes ...string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.interruptBefore = append(g.interruptBefore, nodes...)
	return g
}

// WithInterruptAfter stops execution, resumably, after one of the named
// nodes has run and been checkpointed.
func (g *Graph[S]) WithInterruptAfter(nodes ...string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.interruptAfter = append(g.interruptAfter, nodes...)
	return g
}
