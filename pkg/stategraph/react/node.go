package react

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/llm"
)

// DefaultSystemPrompt is used when the builder is given no prompt. It sets
// behavior only; tool descriptions come from the tool specs.
const DefaultSystemPrompt = "You are a helpful assistant. Use tools when helpful. " +
	"If a tool is used, wait for the tool result before answering."

// DefaultMaxIterations bounds the agent's model turns per node execution.
const DefaultMaxIterations = 12

// FailurePolicy controls how the agent reacts to a tool runtime failure.
// Malformed calls (unknown tool, bad arguments) fail fast regardless.
type FailurePolicy int

const (
	// FailFast stops the node with a ToolCallError on the first tool failure.
	FailFast FailurePolicy = iota

	// AppendErrorAndContinue records the failure as an observation the model
	// can read and keeps going.
	AppendErrorAndContinue
)

// Node is a tool-calling agent that plugs into a graph as an ordinary node
// via its Run method:
//
//	agent, err := react.NewNode[MyState]().
//	    Model(model).
//	    Tools(searchTool, calcTool).
//	    Build()
//	graph.AddNode("agent", agent.Run)
//
// Node is immutable after Build and safe for concurrent use.
type Node[S AgentState[S]] struct {
	model         llm.Model
	tools         map[string]llm.Tool
	specs         []llm.ToolSpec
	prompt        string
	maxIterations int
	policy        FailurePolicy
}

// Builder assembles a Node. Zero or one of each setter; Build validates.
type Builder[S AgentState[S]] struct {
	model         llm.Model
	tools         []llm.Tool
	prompt        string
	maxIterations int
	policy        FailurePolicy
}

// NewNode starts building an agent node for state type S.
func NewNode[S AgentState[S]]() *Builder[S] {
	return &Builder[S]{
		prompt:        DefaultSystemPrompt,
		maxIterations: DefaultMaxIterations,
		policy:        FailFast,
	}
}

// Model sets the tool-calling model. Required.
func (b *Builder[S]) Model(m llm.Model) *Builder[S] {
	b.model = m
	return b
}

// Tools sets the tools the agent may call. Names must be unique.
func (b *Builder[S]) Tools(tools ...llm.Tool) *Builder[S] {
	b.tools = append(b.tools, tools...)
	return b
}

// ToolsFrom adds every tool in a registry. Names must not collide with
// tools already added.
func (b *Builder[S]) ToolsFrom(reg *llm.ToolRegistry) *Builder[S] {
	for _, name := range reg.Names() {
		if t, ok := reg.Get(name); ok {
			b.tools = append(b.tools, t)
		}
	}
	return b
}

// Prompt sets the system prompt.
func (b *Builder[S]) Prompt(prompt string) *Builder[S] {
	b.prompt = prompt
	return b
}

// MaxIterations caps model turns per node execution. Default: 12.
func (b *Builder[S]) MaxIterations(n int) *Builder[S] {
	if n > 0 {
		b.maxIterations = n
	}
	return b
}

// OnToolFailure sets the tool failure policy. Default: FailFast.
func (b *Builder[S]) OnToolFailure(policy FailurePolicy) *Builder[S] {
	b.policy = policy
	return b
}

// Build validates the configuration and returns the node.
// Fails with ErrNoModel or *DuplicateToolError.
func (b *Builder[S]) Build() (*Node[S], error) {
	if b.model == nil {
		return nil, ErrNoModel
	}

	tools := make(map[string]llm.Tool, len(b.tools))
	for _, t := range b.tools {
		name := t.Name()
		if _, exists := tools[name]; exists {
			return nil, &DuplicateToolError{Name: name}
		}
		tools[name] = t
	}

	specs := make([]llm.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, llm.Spec(t))
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })

	return &Node[S]{
		model:         b.model,
		tools:         tools,
		specs:         specs,
		prompt:        b.prompt,
		maxIterations: b.maxIterations,
		policy:        b.policy,
	}, nil
}

// Run executes the agent loop. It satisfies stategraph.NodeFunc[S].
//
// The loop is bounded by the node's remaining iteration budget and, when
// running under a graph step budget, by the smaller of the two. A node that
// wakes up with no budget returns the state unchanged so the outer guard
// decides what happens next.
func (n *Node[S]) Run(ctx stategraph.Context, state S) (S, error) {
	remaining := n.maxIterations - state.Iterations()
	if graphBudget := ctx.RemainingSteps(); graphBudget >= 0 && graphBudget < remaining {
		remaining = graphBudget
	}
	if remaining <= 0 {
		return state, nil
	}

	obs := ctx.Observer()
	nodeID := ctx.NodeID()

	var lastContent string
	answered := false

	for i := 0; i < remaining; i++ {
		messages, err := n.buildMessages(state)
		if err != nil {
			return state, err
		}

		resp, err := n.model.Complete(ctx, llm.Request{Messages: messages, Tools: n.specs})
		if err != nil {
			return state, fmt.Errorf("model completion: %w", err)
		}
		lastContent = resp.Content
		answered = true
		state = state.IncrementIterations()

		if len(resp.ToolCalls) == 0 {
			state = state.AppendSteps(FinalAnswer(resp.Content))
			return state.SetFinalOutput(resp.Content), nil
		}

		if resp.Content != "" {
			state = state.AppendSteps(Thought(resp.Content))
		}

		for _, call := range resp.ToolCalls {
			state = state.AppendSteps(Action(call))

			var callErr error
			state, callErr = n.invokeTool(ctx, state, call, obs, nodeID)
			if callErr != nil {
				return state, callErr
			}
		}
	}

	// Budget exhausted without a final answer: surface the model's last
	// content instead of dropping the conversation on the floor.
	if state.FinalOutput() == "" && answered {
		state = state.AppendSteps(FinalAnswer(lastContent))
		state = state.SetFinalOutput(lastContent)
	}
	return state, nil
}

// invokeTool executes one requested call, applying the malformed-call checks
// and the failure policy. Returns the updated state and a terminal error if
// the node must stop.
func (n *Node[S]) invokeTool(ctx stategraph.Context, state S, call llm.ToolCall, obs stategraph.Observer, nodeID string) (S, error) {
	tool, ok := n.tools[call.Name]
	if !ok {
		callErr := &InvalidToolCallError{Reason: fmt.Sprintf("unknown tool: %s", call.Name)}
		state = state.AppendSteps(ErrorStep(callErr.Error()))
		obs.OnError(nodeID, callErr)
		return state, callErr
	}

	if err := llm.CheckRequired(tool.Schema(), call.Args); err != nil {
		callErr := &InvalidToolCallError{Tool: call.Name, Reason: err.Error()}
		state = state.AppendSteps(ErrorStep(callErr.Error()))
		obs.OnError(nodeID, callErr)
		return state, callErr
	}

	obs.OnToolCall(nodeID, call.Name, call.Args)

	result, err := tool.Invoke(ctx, call.Args)
	if err != nil {
		if n.policy == AppendErrorAndContinue {
			value := mustJSON(fmt.Sprintf("[TOOL ERROR] %s: %v", call.Name, err))
			state = state.AppendSteps(Observation(value))
			obs.OnToolResult(nodeID, call.Name, value)
			return state, nil
		}
		callErr := &ToolCallError{Tool: call.Name, Reason: err.Error()}
		state = state.AppendSteps(ErrorStep(callErr.Error()))
		obs.OnError(nodeID, callErr)
		return state, callErr
	}

	value := mustJSON(result)
	state = state.AppendSteps(Observation(value))
	obs.OnToolResult(nodeID, call.Name, value)
	return state, nil
}

// buildMessages replays the scratchpad into a conversation: system prompt,
// user input, then assistant/tool turns reconstructed from the step log.
// A thought immediately preceding an action rides on the action's assistant
// turn, matching how tool-calling APIs pair reasoning with calls.
func (n *Node[S]) buildMessages(state S) ([]llm.Message, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: n.prompt},
		{Role: llm.RoleUser, Content: state.UserInput()},
	}

	var pendingCalls []llm.ToolCall
	var pendingThought string
	havePendingThought := false

	flushThought := func() {
		if havePendingThought {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: pendingThought})
			havePendingThought = false
		}
	}

	for _, step := range state.Scratchpad() {
		switch step.Kind {
		case KindThought:
			flushThought()
			pendingThought = step.Text
			havePendingThought = true

		case KindAction:
			if step.Call == nil {
				return nil, &InvalidToolCallError{Reason: "action step without call"}
			}
			var content string
			if havePendingThought {
				content = pendingThought
				havePendingThought = false
			}
			messages = append(messages, llm.Message{
				Role:      llm.RoleAssistant,
				Content:   content,
				ToolCalls: []llm.ToolCall{*step.Call},
			})
			pendingCalls = append(pendingCalls, *step.Call)

		case KindObservation:
			if len(pendingCalls) == 0 {
				return nil, &InvalidToolCallError{Reason: "observation without action"}
			}
			call := pendingCalls[0]
			pendingCalls = pendingCalls[1:]
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    string(step.Observation),
				ToolCallID: call.ID,
			})

		case KindFinalAnswer, KindError:
			flushThought()
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: step.Text})
		}
	}

	flushThought()

	if len(pendingCalls) > 0 {
		return nil, &InvalidToolCallError{Reason: "tool calls missing observations"}
	}

	return messages, nil
}

// mustJSON serializes a tool result for the scratchpad. Values a tool hands
// back are JSON-serializable by contract; anything else degrades to its
// string form.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return data
}
