package cluster

import (
	"context"
	"time"

	"github.com/Aleph-Alpha/cluster/v1/observability"
)

// observeOperation notifies the observer about an operation if one is
// configured. This is used internally to track cluster dispatch for
// metrics and tracing.
//
// Notes:
//   - resource: the target node address, empty for multi-node dispatch
//   - subResource: the target node ID, when known
//   - size: the number of nodes the operation targeted
func (e *Executor) observeOperation(_ context.Context, operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if e == nil || e.observer == nil {
		return
	}

	e.observer.ObserveOperation(observability.OperationContext{
		Component:   "cluster",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}
