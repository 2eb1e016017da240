package cluster

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"github.com/Aleph-Alpha/cluster/v1/observability"
)

// Command is a unit of work executed against one node's command handle.
// It returns a value or an error; the executor never inspects the value.
type Command[T any] func(ctx context.Context, handle redis.Cmdable) (T, error)

// MultiKeyCommand is a unit of work executed against one node with the
// subset of keys that node owns.
type MultiKeyCommand[T any] func(ctx context.Context, handle redis.Cmdable, keys [][]byte) (T, error)

// Executor dispatches commands to cluster nodes: to a single node, to an
// explicit subset, to all masters, or key-grouped across owners.
//
// Multi-node dispatch runs one goroutine per target, bounded by a
// semaphore. One node's failure never cancels or blocks the others; the
// calling goroutine blocks until every dispatched unit reaches a terminal
// state, then either returns the full result set or raises a
// MultiNodeError carrying every per-node cause. There is no partial
// success return and no streaming of early results.
//
// The executor applies no retries and no timeouts of its own. Retry policy
// belongs to the layer above (informed by IsRoutingError); timeouts are a
// property of the handle's driver configuration and the caller's context.
//
// An Executor is safe for concurrent use.
type Executor struct {
	topology  TopologyProvider
	resources ResourceProvider

	// maxWorkers bounds concurrent per-node invocations; zero means one
	// worker per target
	maxWorkers int

	logger   Logger
	observer observability.Observer
}

// ExecutorConfig carries the optional knobs of NewExecutor.
type ExecutorConfig struct {
	// MaxWorkers bounds concurrent per-node invocations during multi-node
	// dispatch. Zero means one worker per target node.
	MaxWorkers int

	// Logger is an optional structured logger
	Logger Logger

	// Observer receives one event per executed operation
	Observer observability.Observer
}

// NewExecutor creates an Executor over the given topology and resource
// providers.
func NewExecutor(topology TopologyProvider, resources ResourceProvider, cfg ExecutorConfig) *Executor {
	return &Executor{
		topology:   topology,
		resources:  resources,
		maxWorkers: cfg.MaxWorkers,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
	}
}

// Topology returns the current topology snapshot via the executor's
// provider.
func (e *Executor) Topology(ctx context.Context) (*ClusterTopology, error) {
	return e.topology.Topology(ctx)
}

func (e *Executor) workersFor(targets int) int64 {
	if e.maxWorkers > 0 && e.maxWorkers < targets {
		return int64(e.maxWorkers)
	}
	if targets < 1 {
		return 1
	}
	return int64(targets)
}

// ExecuteOnSingleNode resolves node against the current topology, acquires
// that node's handle, and invokes cmd synchronously on the calling
// goroutine. The handle is always returned, including on error.
//
// A failure propagates directly as the invocation's own error, never
// wrapped in a MultiNodeError: with exactly one target there is exactly
// one cause.
func ExecuteOnSingleNode[T any](ctx context.Context, e *Executor, node ClusterNode, cmd Command[T]) (NodeResult[T], error) {
	start := time.Now()

	topology, err := e.topology.Topology(ctx)
	if err != nil {
		return NodeResult[T]{}, err
	}
	resolved, err := topology.Lookup(node)
	if err != nil {
		return NodeResult[T]{}, err
	}

	value, err := invokeOnNode(ctx, e, resolved, cmd)
	e.observeOperation(ctx, "execute_on_single_node", resolved.Addr(), resolved.ID, time.Since(start), err, 1)
	if err != nil {
		return NodeResult[T]{}, err
	}
	return NodeResult[T]{Node: resolved, Value: value}, nil
}

// ExecuteOnArbitraryNode invokes cmd on one node chosen without any
// routing guarantee. Use it for cluster-wide informational commands where
// any node's answer suffices, such as CLUSTER INFO or TIME.
func ExecuteOnArbitraryNode[T any](ctx context.Context, e *Executor, cmd Command[T]) (NodeResult[T], error) {
	start := time.Now()

	topology, err := e.topology.Topology(ctx)
	if err != nil {
		return NodeResult[T]{}, err
	}
	masters := topology.Masters()
	if len(masters) == 0 {
		return NodeResult[T]{}, ErrNoReachableNode
	}
	node := masters[rand.Intn(len(masters))]

	value, err := invokeOnNode(ctx, e, node, cmd)
	e.observeOperation(ctx, "execute_on_arbitrary_node", node.Addr(), node.ID, time.Since(start), err, 1)
	if err != nil {
		return NodeResult[T]{}, err
	}
	return NodeResult[T]{Node: node, Value: value}, nil
}

// ExecuteOnAllNodes invokes cmd once per master node of the topology
// snapshot taken at call start. See ExecuteOnNodes for the dispatch and
// failure contract.
func ExecuteOnAllNodes[T any](ctx context.Context, e *Executor, cmd Command[T]) (MultiNodeResult[T], error) {
	topology, err := e.topology.Topology(ctx)
	if err != nil {
		return MultiNodeResult[T]{}, err
	}
	return executeOnNodes(ctx, e, "execute_on_all_nodes", topology.Masters(), sameCommand(cmd))
}

// ExecuteOnNodes invokes cmd once per given node, concurrently, bounded by
// the executor's worker limit.
//
// All units run to a terminal state before the call returns; a failing
// node neither cancels nor delays its siblings beyond the join-all
// barrier. With zero failures the full ordered result set is returned.
// With one or more failures the call returns a *MultiNodeError carrying
// every per-node cause, and no result value: the contract is
// all-or-nothing, and a broadcast failure is never silent.
func ExecuteOnNodes[T any](ctx context.Context, e *Executor, nodes []ClusterNode, cmd Command[T]) (MultiNodeResult[T], error) {
	return executeOnNodes(ctx, e, "execute_on_nodes", nodes, sameCommand(cmd))
}

// sameCommand adapts a uniform command to the per-node factory shape used
// by the dispatch core.
func sameCommand[T any](cmd Command[T]) func(ClusterNode) Command[T] {
	return func(ClusterNode) Command[T] { return cmd }
}

// ExecuteMultiKeyCommand groups keys by owning master (hash slot routing
// against the snapshot taken at call start) and invokes cmd once per
// distinct owner with that owner's key subset. Node order follows first
// appearance in keys, so results are deterministic for a given key order
// and topology.
//
// Use this for operations whose Redis form is single-key or single-slot
// but whose API accepts keys that may span nodes.
func ExecuteMultiKeyCommand[T any](ctx context.Context, e *Executor, keys [][]byte, cmd MultiKeyCommand[T]) (MultiNodeResult[T], error) {
	topology, err := e.topology.Topology(ctx)
	if err != nil {
		return MultiNodeResult[T]{}, err
	}

	var order []ClusterNode
	grouped := make(map[string][][]byte)
	for _, key := range keys {
		node, err := topology.NodeForKey(key)
		if err != nil {
			return MultiNodeResult[T]{}, err
		}
		id := node.ID
		if id == "" {
			id = node.Addr()
		}
		if _, seen := grouped[id]; !seen {
			order = append(order, node)
		}
		grouped[id] = append(grouped[id], key)
	}

	return executeOnNodes(ctx, e, "execute_multi_key_command", order, func(node ClusterNode) Command[T] {
		id := node.ID
		if id == "" {
			id = node.Addr()
		}
		keys := grouped[id]
		return func(ctx context.Context, handle redis.Cmdable) (T, error) {
			return cmd(ctx, handle, keys)
		}
	})
}

// executeOnNodes is the multi-node dispatch core: one goroutine per
// target, bounded by a weighted semaphore, join-all, then aggregate.
//
// Each unit moves through acquire-handle, invoke, terminal state; the
// handle is returned on both terminal transitions.
func executeOnNodes[T any](ctx context.Context, e *Executor, op string, nodes []ClusterNode, cmdFor func(ClusterNode) Command[T]) (MultiNodeResult[T], error) {
	start := time.Now()

	results := make([]*NodeResult[T], len(nodes))
	failures := make([]error, len(nodes))

	sem := semaphore.NewWeighted(e.workersFor(len(nodes)))
	var wg sync.WaitGroup

	for i, node := range nodes {
		unitCmd := cmdFor(node)

		wg.Add(1)
		go func(i int, node ClusterNode, cmd Command[T]) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				failures[i] = &NodeError{Node: node, Err: err}
				return
			}
			defer sem.Release(1)

			value, err := invokeOnNode(ctx, e, node, cmd)
			if err != nil {
				failures[i] = &NodeError{Node: node, Err: err}
				return
			}
			results[i] = &NodeResult[T]{Node: node, Value: value}
		}(i, node, unitCmd)
	}

	wg.Wait()

	var causes []error
	for _, f := range failures {
		if f != nil {
			causes = append(causes, f)
		}
	}

	if len(causes) > 0 {
		aggErr := newMultiNodeError(causes)
		if e.logger != nil {
			e.logger.Warn("multi-node dispatch finished with failures", aggErr, map[string]interface{}{
				"operation": op,
				"targets":   len(nodes),
				"failed":    len(causes),
			})
		}
		e.observeOperation(ctx, op, "", "", time.Since(start), aggErr, int64(len(nodes)))
		return MultiNodeResult[T]{}, aggErr
	}

	out := MultiNodeResult[T]{Results: make([]NodeResult[T], len(nodes))}
	for i, r := range results {
		out.Results[i] = *r
	}
	e.observeOperation(ctx, op, "", "", time.Since(start), nil, int64(len(nodes)))
	return out, nil
}

// invokeOnNode runs one unit: acquire the node's handle, invoke, return
// the handle on both terminal states.
func invokeOnNode[T any](ctx context.Context, e *Executor, node ClusterNode, cmd Command[T]) (T, error) {
	var zero T

	handle, err := e.resources.GetResourceForSpecificNode(ctx, node)
	if err != nil {
		return zero, err
	}
	defer e.resources.ReturnResourceForSpecificNode(node, handle)

	return cmd(ctx, handle)
}
