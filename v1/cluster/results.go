package cluster

// NodeResult pairs one target node with the value its invocation produced.
// Results are immutable once returned.
type NodeResult[T any] struct {
	// Node is the node the value came from
	Node ClusterNode

	// Value is the invocation's result
	Value T
}

// MultiNodeResult is the ordered collection of per-node results from one
// multi-node operation. It only exists on the fully successful path: when
// any targeted node fails, the operation returns a MultiNodeError instead
// and no partial result is exposed.
type MultiNodeResult[T any] struct {
	// Results holds one entry per targeted node, in target order
	Results []NodeResult[T]
}

// Values flattens the results into a plain value slice, dropping node
// identity. Useful for callers that only merge values, such as summing
// DBSIZE across masters or unioning KEYS output.
func (r MultiNodeResult[T]) Values() []T {
	out := make([]T, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Value
	}
	return out
}

// Len returns the number of per-node results.
func (r MultiNodeResult[T]) Len() int {
	return len(r.Results)
}
