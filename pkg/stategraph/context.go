package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Context provides execution context to nodes.
// It extends context.Context with stategraph-specific services and metadata.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID, remaining step budget, and enriched
// logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with thread and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// Observer returns the observer notified at node/tool boundaries.
	// Never returns nil - defaults to NoopObserver.
	Observer() Observer

	// Metadata

	// ThreadID returns the thread/session identifier for this invocation.
	// Auto-generated if not configured.
	ThreadID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// RemainingSteps returns the invocation's remaining step budget, the
	// value an agent node caps its own inner loop with. Negative means
	// execution is not running under a budget (e.g. a bare test context).
	RemainingSteps() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger         *slog.Logger
	observer       Observer
	threadID       string
	nodeID         string
	remainingSteps int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Observer returns the configured observer.
func (c *executionContext) Observer() Observer {
	return c.observer
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// RemainingSteps returns the remaining step budget.
func (c *executionContext) RemainingSteps() int {
	return c.remainingSteps
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with thread_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithContextObserver sets the observer for the context. A graph-level
// observer configured with WithObserver takes precedence during Run.
func WithContextObserver(obs Observer) ContextOption {
	return func(c *executionContext) {
		c.observer = obs
	}
}

// WithThreadID sets the thread/session identifier for the context.
// If not set, a UUID is auto-generated. The thread ID keys checkpoint
// history, so resuming a session means re-invoking with the same ID.
func WithThreadID(id string) ContextOption {
	return func(c *executionContext) {
		c.threadID = id
	}
}

// NewContext creates an execution context from a standard context.
// The returned Context wraps the provided context.Context and adds
// stategraph-specific services and metadata.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(myLogger),
//	    stategraph.WithThreadID("session-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context:        ctx,
		logger:         slog.Default(),
		observer:       NoopObserver{},
		threadID:       uuid.New().String(),
		remainingSteps: -1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// forNode returns a derived context with the given node ID, remaining step
// budget, and an enriched logger. Used internally by the executor.
func (c *executionContext) forNode(nodeID string, remaining int, obs Observer) *executionContext {
	return &executionContext{
		Context:        c.Context,
		logger:         c.logger.With("thread_id", c.threadID, "node_id", nodeID),
		observer:       obs,
		threadID:       c.threadID,
		nodeID:         nodeID,
		remainingSteps: remaining,
	}
}
