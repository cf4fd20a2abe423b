package stategraph

import (
	"encoding/json"
	"log/slog"
	"time"
)

// LogObserver is an Observer that writes every callback to a slog.Logger.
// Useful for development and as a template for custom observers.
//
// State and tool payloads are logged at Debug level; use a handler with
// LevelDebug enabled to see them.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger defaults to slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

var _ Observer = (*LogObserver)(nil)

func (o *LogObserver) OnNodeStart(nodeID string, input json.RawMessage) {
	o.logger.Debug("node start",
		slog.String("node", nodeID),
		slog.String("input", string(input)),
	)
}

func (o *LogObserver) OnNodeEnd(nodeID string, output json.RawMessage, duration time.Duration) {
	o.logger.Debug("node end",
		slog.String("node", nodeID),
		slog.String("output", string(output)),
		slog.Duration("duration", duration),
	)
}

func (o *LogObserver) OnError(nodeID string, err error) {
	o.logger.Error("node error",
		slog.String("node", nodeID),
		slog.String("error", err.Error()),
	)
}

func (o *LogObserver) OnToolCall(nodeID, toolName string, args json.RawMessage) {
	o.logger.Debug("tool call",
		slog.String("node", nodeID),
		slog.String("tool", toolName),
		slog.String("args", string(args)),
	)
}

func (o *LogObserver) OnToolResult(nodeID, toolName string, result json.RawMessage) {
	o.logger.Debug("tool result",
		slog.String("node", nodeID),
		slog.String("tool", toolName),
		slog.String("result", string(result)),
	)
}

func (o *LogObserver) OnCheckpointSaved(nodeID string) {
	o.logger.Debug("checkpoint saved", slog.String("node", nodeID))
}
