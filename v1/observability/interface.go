package observability

import "time"

// OperationContext carries everything an Observer needs to know about one
// completed operation. It is constructed by the instrumented component
// after the operation has finished, which means Duration and Error are
// always final values, never in-progress snapshots.
type OperationContext struct {
	// Component is the name of the package reporting the operation
	// (e.g., "cluster", "logger")
	Component string

	// Operation is the short name of the operation (e.g., "execute_on_all_nodes")
	Operation string

	// Resource identifies the primary target of the operation.
	// For cluster operations this is the node address or key being operated on.
	Resource string

	// SubResource carries additional context, such as a node ID or a
	// command name, when Resource alone is not specific enough
	SubResource string

	// Duration is the total wall-clock time the operation took
	Duration time.Duration

	// Error is the error the operation finished with, or nil on success
	Error error

	// Size is an operation-defined size in bytes or element count
	// (e.g., number of nodes targeted by a broadcast). Zero when not applicable.
	Size int64

	// Metadata carries arbitrary additional key-value context
	Metadata map[string]interface{}
}

// Observer receives completed-operation events from instrumented components.
// Implementations must be safe for concurrent use: multi-node dispatch
// reports operations from multiple goroutines.
//
// This interface is implemented by PrometheusObserver and TracingObserver,
// and by no-op or recording fakes in tests.
type Observer interface {
	// ObserveOperation is called once per completed operation.
	// Implementations should return quickly; anything expensive belongs
	// on a background path owned by the implementation.
	ObserveOperation(ctx OperationContext)
}

// MultiObserver fans one event out to several observers in order.
type MultiObserver []Observer

// ObserveOperation forwards the event to every wrapped observer.
func (m MultiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		if o != nil {
			o.ObserveOperation(ctx)
		}
	}
}

// NoopObserver discards every event. Useful as a default when no
// observability backend is configured.
type NoopObserver struct{}

// ObserveOperation discards the event.
func (NoopObserver) ObserveOperation(OperationContext) {}
