package cluster

import (
	"errors"
	"fmt"
)

// Common cluster errors
var (
	// ErrSlotNotAssigned is returned when a hash slot has no owning master
	// in the current topology snapshot. This is a valid transient state
	// during resharding; refreshing the topology and retrying is the
	// caller's decision, never done automatically.
	ErrSlotNotAssigned = errors.New("cluster: slot not assigned")

	// ErrNodeNotFound is returned when a referenced node does not exist in
	// the current topology snapshot.
	ErrNodeNotFound = errors.New("cluster: node not found in topology")

	// ErrCrossSlot is returned when a multi-key operation requires all keys
	// on one slot but the given keys map to different slots.
	ErrCrossSlot = errors.New("cluster: keys hash to different slots")

	// ErrNoReachableNode is returned when no cluster node can be reached to
	// answer a topology query.
	ErrNoReachableNode = errors.New("cluster: no reachable node")

	// ErrUnknownNode is returned by the resource provider when asked for a
	// handle to a node it cannot address (for example a hint without a host).
	ErrUnknownNode = errors.New("cluster: node unknown to resource provider")

	// ErrClosed is returned when an operation is attempted on a closed
	// client or resource provider.
	ErrClosed = errors.New("cluster: closed")
)

// IsRoutingError reports whether the error is a routing failure, i.e. a
// stale or incomplete topology rather than a command failure. A caller
// seeing a routing error may refresh the topology and retry; a command
// error would not benefit from that.
func IsRoutingError(err error) bool {
	return errors.Is(err, ErrSlotNotAssigned) || errors.Is(err, ErrNodeNotFound)
}

// IsCrossSlotError reports whether the error is a cross-slot rejection.
func IsCrossSlotError(err error) bool {
	return errors.Is(err, ErrCrossSlot)
}

// NodeError wraps one node's invocation failure with the node it occurred
// on. It is the cause type carried inside MultiNodeError.
type NodeError struct {
	// Node is the node whose invocation failed
	Node ClusterNode

	// Err is the underlying failure
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying failure.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// MultiNodeError aggregates the per-node failures of one multi-node
// operation into a single error. It is only constructed when at least one
// node failed; a single-node operation propagates its error directly
// without this wrapper.
//
// The first cause provides the headline message; every cause remains
// reachable through Causes and through errors.Is/errors.As via Unwrap.
type MultiNodeError struct {
	// Causes holds one entry per failed node invocation, in target order.
	// Never empty.
	Causes []error
}

func newMultiNodeError(causes []error) *MultiNodeError {
	if len(causes) == 0 {
		// Contract violation on the executor's side; the multi-node path
		// only aggregates when failedCount >= 1.
		panic("cluster: MultiNodeError constructed without causes")
	}
	return &MultiNodeError{Causes: causes}
}

func (e *MultiNodeError) Error() string {
	if len(e.Causes) == 1 {
		return fmt.Sprintf("cluster: 1 node invocation failed: %v", e.Causes[0])
	}
	return fmt.Sprintf("cluster: %d node invocations failed, first: %v", len(e.Causes), e.Causes[0])
}

// Unwrap exposes every cause to errors.Is and errors.As.
func (e *MultiNodeError) Unwrap() []error {
	return e.Causes
}

// First returns the first per-node cause.
func (e *MultiNodeError) First() error {
	return e.Causes[0]
}

// AsMultiNodeError extracts a MultiNodeError from err's chain, if present.
func AsMultiNodeError(err error) (*MultiNodeError, bool) {
	var m *MultiNodeError
	if errors.As(err, &m) {
		return m, true
	}
	return nil, false
}
