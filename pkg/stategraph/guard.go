package stategraph

import "github.com/randalmurphal/stategraph/pkg/stategraph/config"

// Safety guard defaults. Both checks are O(1) per step and overridable per
// invocation; per-invocation options win over graph defaults.
const (
	// DefaultMaxSteps is the default step limit per invocation.
	DefaultMaxSteps = 50

	// DefaultCycleWindow is the default recent-node window size.
	DefaultCycleWindow = 20
)

// ExecutionConfig holds the graph-level safety guard defaults, set with
// WithDefaultConfig and overridable per Run via RunOptions.
type ExecutionConfig struct {
	// MaxSteps is the step limit; 0 means DefaultMaxSteps.
	MaxSteps int
	// CycleDetection enables the recent-node oscillation check.
	CycleDetection bool
	// CycleWindow is the recent-node window size; 0 means DefaultCycleWindow.
	CycleWindow int
}

// DefaultExecutionConfig returns the stock guard configuration:
// step limit 50, cycle detection on with window 20.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		MaxSteps:       DefaultMaxSteps,
		CycleDetection: true,
		CycleWindow:    DefaultCycleWindow,
	}
}

// ExecutionConfigFromConfig reads guard settings from a loaded config.
// Recognized keys: max_steps, cycle_detection, cycle_window. Missing keys
// fall back to the stock defaults.
//
//	cfg, _ := config.FromFile("stategraph.yaml")
//	graph.WithDefaultConfig(stategraph.ExecutionConfigFromConfig(cfg))
func ExecutionConfigFromConfig(cfg config.Config) ExecutionConfig {
	defaults := DefaultExecutionConfig()
	return ExecutionConfig{
		MaxSteps:       cfg.Int("max_steps", defaults.MaxSteps),
		CycleDetection: cfg.Bool("cycle_detection", defaults.CycleDetection),
		CycleWindow:    cfg.Int("cycle_window", defaults.CycleWindow),
	}
}

// guard is the per-invocation safety state: a step counter against a limit
// and a fixed-capacity queue of recently visited node names. It is created
// at call start and discarded at call end; never persisted, so a resumed
// invocation starts with a fresh window.
type guard struct {
	limit          int
	steps          int
	cycleDetection bool
	window         int
	recent         []string
	counts         map[string]int
}

// newGuard builds guard state from the effective (merged) configuration.
func newGuard(cfg ExecutionConfig) *guard {
	limit := cfg.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}
	window := cfg.CycleWindow
	if window <= 0 {
		window = DefaultCycleWindow
	}
	g := &guard{
		limit:          limit,
		cycleDetection: cfg.CycleDetection,
		window:         window,
	}
	if g.cycleDetection {
		g.recent = make([]string, 0, window)
		g.counts = make(map[string]int, window)
	}
	return g
}

// beforeNode runs both checks for the node about to execute. The step limit
// fires once the counter reaches the limit before the next node runs; cycle
// detection pushes the node's name into the window (evicting the oldest
// beyond capacity) and fires if the name now appears twice. One occurrence
// per window is allowed, supporting bounded retry loops.
func (g *guard) beforeNode(node string) error {
	if g.steps >= g.limit {
		return &MaxStepsError{Limit: g.limit, Reached: g.steps}
	}
	if g.cycleDetection {
		if len(g.recent) == g.window {
			oldest := g.recent[0]
			g.recent = g.recent[1:]
			if g.counts[oldest]--; g.counts[oldest] == 0 {
				delete(g.counts, oldest)
			}
		}
		g.recent = append(g.recent, node)
		g.counts[node]++
		if g.counts[node] >= 2 {
			recent := make([]string, len(g.recent))
			copy(recent, g.recent)
			return &CycleError{Node: node, Recent: recent}
		}
	}
	return nil
}

// afterNode advances the step counter once a node has run.
func (g *guard) afterNode() {
	g.steps++
}

// remaining returns the step budget left for this invocation.
func (g *guard) remaining() int {
	if r := g.limit - g.steps; r > 0 {
		return r
	}
	return 0
}
