package claim

import "context"

// Notifier dispatches decision events to an external channel. Send failures
// are logged by the orchestrator and never affect claim state.
type Notifier interface {
	Send(ctx context.Context, ev *DecisionEvent) error
}
