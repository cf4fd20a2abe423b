package stategraph

// Reducer helpers for common merge strategies. These are building blocks for
// state types that implement Merger: call them field by field from Merge.

// AppendSlice returns current with update's elements appended.
// Use for scratchpads, message logs, and other append-only fields.
func AppendSlice[T any](current, update []T) []T {
	if len(update) == 0 {
		return current
	}
	out := make([]T, 0, len(current)+len(update))
	out = append(out, current...)
	out = append(out, update...)
	return out
}

// MergeMaps returns a copy of current with update's entries overlaid.
// Keys present in both take update's value.
func MergeMaps[K comparable, V any](current, update map[K]V) map[K]V {
	if len(update) == 0 {
		return current
	}
	out := make(map[K]V, len(current)+len(update))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// AddCounters returns the sum of current and update.
// Use for counter fields where nodes report deltas.
func AddCounters(current, update int64) int64 {
	return current + update
}

// LastWrite is the default merge rule: the update replaces the state.
func LastWrite[S any](_, update S) S {
	return update
}

// mergeState applies the graph's merge rule to a node's returned update.
// Priority: explicit graph reducer, then a state type implementing Merger,
// then last-write-wins.
func mergeState[S any](reducer MergeFunc[S], current, update S) S {
	if reducer != nil {
		return reducer(current, update)
	}
	if m, ok := any(current).(Merger[S]); ok {
		return m.Merge(update)
	}
	return update
}
