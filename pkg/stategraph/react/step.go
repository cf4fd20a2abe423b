// Package react provides a tool-calling agent node for stategraph.
//
// The node runs a reason-then-act loop against an llm.Model and a set of
// tools: the model proposes a thought and tool calls, tools execute, and
// their observations feed the next model turn. Every step is appended to a
// scratchpad inside the graph state, so the loop's progress is checkpointed
// with everything else and survives crash/resume.
package react

import (
	"encoding/json"

	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// StepKind discriminates scratchpad entries.
type StepKind string

const (
	KindThought     StepKind = "thought"
	KindAction      StepKind = "action"
	KindObservation StepKind = "observation"
	KindFinalAnswer StepKind = "final_answer"
	KindError       StepKind = "error"
)

// Step is one scratchpad entry. Exactly one of Text, Call, or Observation is
// meaningful depending on Kind; use the constructors.
type Step struct {
	Kind StepKind `json:"kind"`

	// Text carries thought, final-answer, and error content.
	Text string `json:"text,omitempty"`
	// Call is the requested tool call for action steps.
	Call *llm.ToolCall `json:"call,omitempty"`
	// Observation is the JSON-encoded tool result for observation steps.
	Observation json.RawMessage `json:"observation,omitempty"`
}

// Thought records model reasoning that accompanied a tool call.
func Thought(text string) Step {
	return Step{Kind: KindThought, Text: text}
}

// Action records a tool call requested by the model.
func Action(call llm.ToolCall) Step {
	return Step{Kind: KindAction, Call: &call}
}

// Observation records a tool result.
func Observation(value json.RawMessage) Step {
	return Step{Kind: KindObservation, Observation: value}
}

// FinalAnswer records the model's terminal answer.
func FinalAnswer(text string) Step {
	return Step{Kind: KindFinalAnswer, Text: text}
}

// ErrorStep records a failure inside the loop.
func ErrorStep(text string) Step {
	return Step{Kind: KindError, Text: text}
}
