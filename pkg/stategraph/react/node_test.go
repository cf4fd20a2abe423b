package react

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// scriptedModel replays a fixed sequence of responses and records the
// requests it saw.
type scriptedModel struct {
	responses []llm.Response
	requests  []llm.Request
	err       error
}

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &llm.Response{Content: "done"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return &resp, nil
}

func echoTool() llm.Tool {
	return llm.NewFunctionTool("echo", "Echo the query",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["query"], nil
		})
}

func failingTool(err error) llm.Tool {
	return llm.NewFunctionTool("broken", "Always fails",
		map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, err
		})
}

func agentCtx() stategraph.Context {
	return stategraph.NewContext(context.Background())
}

// TestBuilder_NoModel tests that Build requires a model.
func TestBuilder_NoModel(t *testing.T) {
	_, err := NewNode[State]().Build()
	assert.ErrorIs(t, err, ErrNoModel)
}

// TestBuilder_DuplicateTool tests duplicate tool rejection.
func TestBuilder_DuplicateTool(t *testing.T) {
	_, err := NewNode[State]().
		Model(&scriptedModel{}).
		Tools(echoTool(), echoTool()).
		Build()

	var dupErr *DuplicateToolError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "echo", dupErr.Name)
}

// TestBuilder_ToolsFrom tests loading tools out of a registry.
func TestBuilder_ToolsFrom(t *testing.T) {
	reg, err := llm.NewToolRegistry(echoTool())
	require.NoError(t, err)

	model := &scriptedModel{}
	node, err := NewNode[State]().Model(model).ToolsFrom(reg).Build()
	require.NoError(t, err)

	_, err = node.Run(agentCtx(), NewState("hi"))
	require.NoError(t, err)
	require.Len(t, model.requests, 1)
	require.Len(t, model.requests[0].Tools, 1)
	assert.Equal(t, "echo", model.requests[0].Tools[0].Name)
}

// TestRun_DirectAnswer tests a model that answers without tools.
func TestRun_DirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{{Content: "42"}}}
	node, err := NewNode[State]().Model(model).Build()
	require.NoError(t, err)

	result, err := node.Run(agentCtx(), NewState("what is 6*7?"))
	require.NoError(t, err)
	assert.Equal(t, "42", result.FinalOutput())
	assert.Equal(t, 1, result.Iterations())

	require.Len(t, result.Steps, 1)
	assert.Equal(t, KindFinalAnswer, result.Steps[0].Kind)
	assert.Equal(t, "42", result.Steps[0].Text)
}

// TestRun_ToolThenAnswer tests one tool round-trip followed by the answer.
func TestRun_ToolThenAnswer(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{
			Content: "I should look that up.",
			ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "echo", Args: json.RawMessage(`{"query":"go"}`)},
			},
		},
		{Content: "the answer is go"},
	}}

	node, err := NewNode[State]().Model(model).Tools(echoTool()).Build()
	require.NoError(t, err)

	result, err := node.Run(agentCtx(), NewState("search for go"))
	require.NoError(t, err)
	assert.Equal(t, "the answer is go", result.FinalOutput())
	assert.Equal(t, 2, result.Iterations())

	// Thought, action, observation, final answer in order.
	require.Len(t, result.Steps, 4)
	assert.Equal(t, KindThought, result.Steps[0].Kind)
	assert.Equal(t, KindAction, result.Steps[1].Kind)
	assert.Equal(t, "echo", result.Steps[1].Call.Name)
	assert.Equal(t, KindObservation, result.Steps[2].Kind)
	assert.JSONEq(t, `"go"`, string(result.Steps[2].Observation))
	assert.Equal(t, KindFinalAnswer, result.Steps[3].Kind)

	// The second request replays the tool round-trip: system, user,
	// assistant with the call, tool result.
	require.Len(t, model.requests, 2)
	replay := model.requests[1].Messages
	require.Len(t, replay, 4)
	assert.Equal(t, llm.RoleSystem, replay[0].Role)
	assert.Equal(t, llm.RoleUser, replay[1].Role)
	assert.Equal(t, llm.RoleAssistant, replay[2].Role)
	assert.Equal(t, "I should look that up.", replay[2].Content)
	require.Len(t, replay[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, replay[3].Role)
	assert.Equal(t, "c1", replay[3].ToolCallID)
}

// TestRun_UnknownTool tests that an unknown tool fails the node regardless
// of policy.
func TestRun_UnknownTool(t *testing.T) {
	for _, policy := range []FailurePolicy{FailFast, AppendErrorAndContinue} {
		model := &scriptedModel{responses: []llm.Response{
			{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "ghost", Args: json.RawMessage(`{}`)}}},
		}}
		node, err := NewNode[State]().
			Model(model).
			Tools(echoTool()).
			OnToolFailure(policy).
			Build()
		require.NoError(t, err)

		result, err := node.Run(agentCtx(), NewState("go"))

		var callErr *InvalidToolCallError
		require.ErrorAs(t, err, &callErr)
		assert.Contains(t, callErr.Reason, "ghost")

		last := result.Steps[len(result.Steps)-1]
		assert.Equal(t, KindError, last.Kind)
	}
}

// TestRun_MissingRequiredArgument tests schema rejection before invocation.
func TestRun_MissingRequiredArgument(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Args: json.RawMessage(`{}`)}}},
	}}
	node, err := NewNode[State]().Model(model).Tools(echoTool()).Build()
	require.NoError(t, err)

	_, err = node.Run(agentCtx(), NewState("go"))

	var callErr *InvalidToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "echo", callErr.Tool)
}

// TestRun_FailFast tests the default tool failure policy.
func TestRun_FailFast(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken", Args: json.RawMessage(`{}`)}}},
	}}
	node, err := NewNode[State]().
		Model(model).
		Tools(failingTool(errors.New("disk on fire"))).
		Build()
	require.NoError(t, err)

	result, err := node.Run(agentCtx(), NewState("go"))

	var callErr *ToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "broken", callErr.Tool)
	assert.Contains(t, callErr.Reason, "disk on fire")

	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, KindError, last.Kind)
}

// TestRun_AppendErrorAndContinue tests surfacing tool failures to the model
// as observations.
func TestRun_AppendErrorAndContinue(t *testing.T) {
	model := &scriptedModel{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken", Args: json.RawMessage(`{}`)}}},
		{Content: "could not do it"},
	}}
	node, err := NewNode[State]().
		Model(model).
		Tools(failingTool(errors.New("disk on fire"))).
		OnToolFailure(AppendErrorAndContinue).
		Build()
	require.NoError(t, err)

	result, err := node.Run(agentCtx(), NewState("go"))
	require.NoError(t, err)
	assert.Equal(t, "could not do it", result.FinalOutput())

	// The failure became an observation the model could read.
	require.Len(t, result.Steps, 3)
	assert.Equal(t, KindObservation, result.Steps[1].Kind)
	assert.Contains(t, string(result.Steps[1].Observation), "[TOOL ERROR] broken")
}

// TestRun_IterationBudget tests the budget-exhausted fallback: the model's
// last content becomes the final answer.
func TestRun_IterationBudget(t *testing.T) {
	loop := llm.Response{
		Content:   "still working",
		ToolCalls: []llm.ToolCall{{ID: "c", Name: "echo", Args: json.RawMessage(`{"query":"x"}`)}},
	}
	model := &scriptedModel{responses: []llm.Response{loop, loop, loop}}
	node, err := NewNode[State]().
		Model(model).
		Tools(echoTool()).
		MaxIterations(2).
		Build()
	require.NoError(t, err)

	result, err := node.Run(agentCtx(), NewState("go"))
	require.NoError(t, err)
	assert.Len(t, model.requests, 2) // budget stopped the third turn
	assert.Equal(t, 2, result.Iterations())
	assert.Equal(t, "still working", result.FinalOutput())

	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, KindFinalAnswer, last.Kind)
}

// TestRun_NoBudget tests that an exhausted agent returns unchanged.
func TestRun_NoBudget(t *testing.T) {
	model := &scriptedModel{}
	node, err := NewNode[State]().Model(model).MaxIterations(2).Build()
	require.NoError(t, err)

	state := NewState("go")
	state.Iteration = 2

	result, err := node.Run(agentCtx(), state)
	require.NoError(t, err)
	assert.Equal(t, state, result)
	assert.Empty(t, model.requests)
}

// TestRun_ModelError tests completion failures.
func TestRun_ModelError(t *testing.T) {
	cause := errors.New("rate limited")
	model := &scriptedModel{err: cause}
	node, err := NewNode[State]().Model(model).Build()
	require.NoError(t, err)

	_, err = node.Run(agentCtx(), NewState("go"))
	assert.ErrorIs(t, err, cause)
}

// TestBuildMessages_PairingErrors tests scratchpad consistency checks.
func TestBuildMessages_PairingErrors(t *testing.T) {
	model := &scriptedModel{}
	node, err := NewNode[State]().Model(model).Tools(echoTool()).Build()
	require.NoError(t, err)

	orphanObs := NewState("go").AppendSteps(Observation(json.RawMessage(`"x"`)))
	_, err = node.buildMessages(orphanObs)
	var callErr *InvalidToolCallError
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, callErr.Reason, "observation without action")

	danglingCall := NewState("go").AppendSteps(
		Action(llm.ToolCall{ID: "c1", Name: "echo", Args: json.RawMessage(`{}`)}))
	_, err = node.buildMessages(danglingCall)
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, callErr.Reason, "missing observations")
}

// TestState_Merge tests the scratchpad-preserving merge rule.
func TestState_Merge(t *testing.T) {
	base := NewState("go").AppendSteps(Thought("a"), Thought("b"))

	// Full-state update (the agent node returns complete state): replace.
	full := base.AppendSteps(Thought("c")).SetFinalOutput("done")
	merged := base.Merge(full)
	assert.Len(t, merged.Steps, 3)
	assert.Equal(t, "done", merged.Output)

	// Delta update carrying only new steps: append, keep prior output.
	withOutput := base.SetFinalOutput("partial")
	delta := State{Steps: []Step{Thought("d")}}
	merged = withOutput.Merge(delta)
	require.Len(t, merged.Steps, 3)
	assert.Equal(t, "d", merged.Steps[2].Text)
	assert.Equal(t, "partial", merged.Output)
}
