package ports

import "context"

const (
	// EventNodeStarted is emitted right before a node's request is executed.
	EventNodeStarted = "node.started"
	// EventNodeSucceeded is emitted after a node finishes successfully.
	EventNodeSucceeded = "node.succeeded"
	// EventNodeFailed is emitted after a node reports failure.
	EventNodeFailed = "node.failed"
	// EventNodeSkipped is emitted for nodes never started because an earlier
	// failure halted scheduling.
	EventNodeSkipped = "node.skipped"
)

// NodeEvent describes a lifecycle transition of one graph node. Result is nil
// for started and skipped events.
type NodeEvent struct {
	Type    string
	NodeID  string
	Request Request
	Result  *OperationResult
}

// Observer receives node events. Parallel execution delivers events from
// several goroutines, so implementations must be safe for concurrent use and
// should return quickly.
type Observer interface {
	Observe(ctx context.Context, event NodeEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, event NodeEvent)

// Observe calls f(ctx, event).
func (f ObserverFunc) Observe(ctx context.Context, event NodeEvent) {
	f(ctx, event)
}
