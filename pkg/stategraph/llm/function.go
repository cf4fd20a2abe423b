package llm

import (
	"context"
	"encoding/json"
)

// FunctionTool adapts a plain Go function into a Tool. Arguments are decoded
// from JSON and checked against the schema's required list before the
// function runs.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
//
// Example:
//
//	sum := llm.NewFunctionTool(
//	    "calculate_sum",
//	    "Calculate the sum of two numbers",
//	    map[string]any{
//	        "type": "object",
//	        "properties": map[string]any{
//	            "a": map[string]any{"type": "number"},
//	            "b": map[string]any{"type": "number"},
//	        },
//	        "required": []string{"a", "b"},
//	    },
//	    func(ctx context.Context, args map[string]any) (any, error) {
//	        return args["a"].(float64) + args["b"].(float64), nil
//	    },
//	)
type FunctionTool struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
func NewFunctionTool(
	name, description string,
	schema map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

var _ Tool = (*FunctionTool)(nil)

func (t *FunctionTool) Name() string { return t.name }

func (t *FunctionTool) Description() string { return t.description }

func (t *FunctionTool) Schema() map[string]any { return t.schema }

// Invoke decodes the arguments, validates required properties, and calls
// the wrapped function. Failures are reported as *ToolError.
func (t *FunctionTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	if err := CheckRequired(t.schema, args); err != nil {
		return nil, NewToolError(t.name, "invalid arguments: %v", err)
	}

	var decoded map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &decoded); err != nil {
			return nil, NewToolError(t.name, "invalid arguments: %v", err)
		}
	}

	result, err := t.fn(ctx, decoded)
	if err != nil {
		if te, ok := err.(*ToolError); ok {
			return nil, te
		}
		return nil, NewToolError(t.name, "%v", err)
	}
	return result, nil
}
