package react

// AgentState is the contract a graph state type satisfies to host the agent
// loop. It is self-referential so mutating methods return the concrete state
// type by value, keeping states copy-on-write like every other stategraph
// state.
type AgentState[S any] interface {
	// Scratchpad returns the ordered step log.
	Scratchpad() []Step

	// AppendSteps returns a copy of the state with steps added to the
	// scratchpad.
	AppendSteps(steps ...Step) S

	// UserInput returns the task the agent is working on.
	UserInput() string

	// FinalOutput returns the agent's answer, empty until set.
	FinalOutput() string

	// SetFinalOutput returns a copy of the state with the answer set.
	SetFinalOutput(output string) S

	// Iterations returns how many model turns the agent has taken, across
	// resumes.
	Iterations() int

	// IncrementIterations returns a copy of the state with the turn counter
	// advanced.
	IncrementIterations() S
}

// State is a ready-made agent state. Embed it or use it directly as the
// graph's state type.
type State struct {
	Input     string `json:"input"`
	Steps     []Step `json:"scratchpad"`
	Output    string `json:"output,omitempty"`
	Iteration int    `json:"iterations"`
}

// NewState creates an agent state for a user task.
func NewState(input string) State {
	return State{Input: input}
}

var _ AgentState[State] = State{}

func (s State) Scratchpad() []Step { return s.Steps }

func (s State) AppendSteps(steps ...Step) State {
	combined := make([]Step, 0, len(s.Steps)+len(steps))
	combined = append(combined, s.Steps...)
	combined = append(combined, steps...)
	s.Steps = combined
	return s
}

func (s State) UserInput() string { return s.Input }

func (s State) FinalOutput() string { return s.Output }

func (s State) SetFinalOutput(output string) State {
	s.Output = output
	return s
}

func (s State) Iterations() int { return s.Iteration }

func (s State) IncrementIterations() State {
	s.Iteration++
	return s
}

// Merge implements the stategraph merge contract with scratchpad-preserving
// semantics. An update whose scratchpad already extends the current one
// replaces the state wholesale (the agent node returns full state); an
// update carrying only new steps has them appended to the existing history.
// Either way the scratchpad never loses entries across merge and resume.
func (s State) Merge(update State) State {
	if len(update.Steps) >= len(s.Steps) {
		return update
	}
	merged := update
	combined := make([]Step, 0, len(s.Steps)+len(update.Steps))
	combined = append(combined, s.Steps...)
	combined = append(combined, update.Steps...)
	merged.Steps = combined
	if merged.Output == "" {
		merged.Output = s.Output
	}
	if merged.Iteration < s.Iteration {
		merged.Iteration = s.Iteration
	}
	return merged
}
