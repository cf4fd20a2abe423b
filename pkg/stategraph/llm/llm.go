// Package llm defines the model and tool contracts consumed by agent nodes.
//
// The engine never talks to a provider directly: it drives a Model through
// Complete and executes Tools by name. Adapters for the official OpenAI and
// Anthropic SDKs live in the openai and anthropic subpackages; tests use
// in-memory implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a conversation. Content and ToolCalls may both be
// set on an assistant turn; ToolCallID links a tool turn back to the call it
// answers.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function call requested by the model, normalized across
// providers.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ToolSpec declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset: type, properties,
// required).
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized model input: the full conversation plus the tool
// catalog the model may call into.
type Request struct {
	Messages []Message  `json:"messages"`
	Tools    []ToolSpec `json:"tools,omitempty"`
}

// Response is the model's reply. An empty ToolCalls slice means the model
// answered directly.
type Response struct {
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Model is the single-operation interface an agent node drives.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Tool defines a capability an agent can invoke.
//
// Implementations should be safe for concurrent use; the same Tool value may
// serve multiple graph invocations.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Schema returns a JSON Schema object describing the expected arguments.
	Schema() map[string]any

	// Invoke executes the tool. The returned value must be JSON-serializable.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolError reports a tool runtime failure. Agent nodes translate these
// into observations or run failures depending on their failure policy.
type ToolError struct {
	// Tool is the name of the tool that failed.
	Tool string
	// Message describes the failure.
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError.
func NewToolError(tool, format string, args ...any) *ToolError {
	return &ToolError{Tool: tool, Message: fmt.Sprintf(format, args...)}
}

// Spec builds the ToolSpec for a tool.
func Spec(t Tool) ToolSpec {
	return ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// CheckRequired validates raw call arguments against a tool schema's
// required list. It decodes the arguments as a JSON object and reports the
// first missing property. Schemas without a required list accept anything.
func CheckRequired(schema map[string]any, args json.RawMessage) error {
	required := requiredProps(schema)
	if len(required) == 0 {
		return nil
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	for _, name := range required {
		if _, ok := decoded[name]; !ok {
			return fmt.Errorf("missing required argument %q", name)
		}
	}
	return nil
}

// requiredProps extracts the required property names from a JSON Schema
// object, tolerating both []string and []any encodings.
func requiredProps(schema map[string]any) []string {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}
