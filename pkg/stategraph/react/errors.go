package react

import (
	"errors"
	"fmt"
)

// ErrNoModel indicates Build() was called without a model.
var ErrNoModel = errors.New("react: model is required")

// DuplicateToolError indicates two tools with the same name were registered.
type DuplicateToolError struct {
	// Name is the colliding tool name.
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("react: duplicate tool name: %s", e.Name)
}

// InvalidToolCallError reports a malformed tool call: an unknown tool,
// arguments failing the tool's required-schema check, or a scratchpad whose
// actions and observations do not pair up. These fail the node regardless of
// the configured failure policy.
type InvalidToolCallError struct {
	// Tool is the tool name, if the call named one.
	Tool string
	// Reason describes the problem.
	Reason string
}

func (e *InvalidToolCallError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("invalid tool call: %s", e.Reason)
	}
	return fmt.Sprintf("invalid tool call to %s: %s", e.Tool, e.Reason)
}

// ToolCallError reports a tool runtime failure under the FailFast policy.
type ToolCallError struct {
	// Tool is the tool that failed.
	Tool string
	// Reason is the tool's error message.
	Reason string
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("tool call failed: %s: %s", e.Tool, e.Reason)
}
