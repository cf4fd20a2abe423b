package stategraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return a state update (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation. The returned value is
// combined with the prior state by the graph's merge rule before the next
// node runs (last-write-wins unless a reducer is configured).
//
// Example:
//
//	func increment(ctx stategraph.Context, s Counter) (Counter, error) {
//	    s.Value++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
//
// The router should return a valid node ID or stategraph.END.
// Returning an empty string or an unknown node ID fails the run with a
// RouterError at resolution time, since the value is data-dependent.
//
// Routers must be pure functions of the state.
//
// Example:
//
//	func router(ctx stategraph.Context, s State) string {
//	    if s.Done {
//	        return stategraph.END
//	    }
//	    return "process"
//	}
type RouterFunc[S any] func(ctx Context, state S) string

// MergeFunc combines a node's returned update with the prior state.
// The default merge is last-write-wins: the update replaces the state.
type MergeFunc[S any] func(current, update S) S

// Merger is implemented by state types that opt into a custom merge rule.
// When S implements Merger[S], the execution loop calls Merge instead of
// replacing the state, unless the graph overrides it with WithReducer.
//
// Merge must be pure and total for any update a node can produce.
type Merger[S any] interface {
	Merge(update S) S
}
