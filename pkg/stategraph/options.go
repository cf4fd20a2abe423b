package stategraph

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// runConfig holds the effective configuration for one Run invocation.
// It starts from the graph's defaults and is mutated by RunOptions.
type runConfig struct {
	exec         ExecutionConfig
	autoResume   bool
	noInterrupts bool

	// observer overrides the graph-level observer for this run.
	observer Observer

	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// newRunConfig builds the run configuration from graph defaults plus options.
func newRunConfig(defaults ExecutionConfig, opts []RunOption) runConfig {
	cfg := runConfig{
		exec:    defaults,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// RunOption configures execution behavior for a single Run invocation.
// Per-invocation options win over the graph defaults set with
// WithDefaultConfig.
type RunOption func(*runConfig)

// WithMaxSteps sets the step limit for this invocation.
// Default: 50 (or the graph's configured default).
//
// The limit bounds total node executions per invocation so an errant
// routing loop fails with a MaxStepsError instead of running forever.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, stategraph.WithMaxSteps(100))
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.exec.MaxSteps = n
		}
	}
}

// WithCycleDetection enables or disables the recent-node oscillation check
// for this invocation. Default: enabled.
func WithCycleDetection(enabled bool) RunOption {
	return func(c *runConfig) {
		c.exec.CycleDetection = enabled
	}
}

// WithCycleWindow sets the recent-node window size for cycle detection.
// Default: 20. A node may appear once per window; a second appearance
// fails the run with a CycleError.
func WithCycleWindow(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.exec.CycleWindow = n
		}
	}
}

// WithAutoResume makes Run load the latest checkpoint for the context's
// thread ID and use its state instead of the caller-supplied initial state.
// Requires a checkpoint store configured with WithCheckpointer.
//
// If no checkpoint exists for the thread, the run starts from the
// caller-supplied state. Only state is restored; execution restarts from
// the entry node with a fresh safety guard.
func WithAutoResume() RunOption {
	return func(c *runConfig) {
		c.autoResume = true
	}
}

// WithoutInterrupts disables the graph's static interrupt points for this
// invocation. Use it when resuming past an interrupt that already fired:
//
//	_, err := compiled.Run(ctx, state)          // stops with InterruptError
//	// ... inspect or edit state ...
//	result, err := compiled.Run(ctx, state,
//	    stategraph.WithAutoResume(),
//	    stategraph.WithoutInterrupts())
func WithoutInterrupts() RunOption {
	return func(c *runConfig) {
		c.noInterrupts = true
	}
}

// WithRunObserver overrides the graph-level observer for this invocation.
func WithRunObserver(obs Observer) RunOption {
	return func(c *runConfig) {
		c.observer = obs
	}
}

// WithMetrics records run, node, and checkpoint metrics through the given
// recorder. Use observability.NewMetricsRecorder() for OpenTelemetry.
func WithMetrics(rec observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if rec != nil {
			c.metrics = rec
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and each node.
// Configure the global tracer provider before running.
func WithTracing() RunOption {
	return func(c *runConfig) {
		c.spans = observability.NewSpanManager()
		c.tracingEnabled = true
	}
}
