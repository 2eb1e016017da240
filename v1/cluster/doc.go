// Package cluster provides a topology-aware command execution engine for
// Redis Cluster.
//
// The package routes commands by hash slot, fans commands out to one,
// many, or all nodes with bounded concurrency, and aggregates per-node
// results and failures. It sits below per-command wrapper code and above
// the go-redis driver: the driver speaks the wire protocol, this package
// decides which node (or nodes) each unit of work runs on.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - ClusterCommands interface: the operation surface of the client
//   - Client struct: concrete implementation, built by NewClient
//   - Executor: the dispatch engine, usable directly via the generic
//     Execute functions for commands outside the built-in surface
//   - TopologyProvider / ResourceProvider interfaces: pluggable sources
//     of routing snapshots and node-scoped command handles
//
// Core behaviors:
//   - Slot routing reproducing the Redis Cluster reference hashing
//     (CRC16 mod 16384, hash-tag aware)
//   - Immutable topology snapshots built from CLUSTER NODES
//   - Multi-node dispatch with a join-all barrier: one node's failure
//     never cancels the others, and a failed broadcast raises a
//     MultiNodeError carrying every per-node cause
//   - Single-node calls run synchronously on the caller's goroutine and
//     propagate their error unwrapped
//   - Cross-slot multi-key operations are emulated client-side (for
//     example Rename via DUMP, RESTORE, DEL)
//
// # Direct Usage (Without FX)
//
//	client, err := cluster.NewClient(cluster.Config{
//		Addrs: []string{"localhost:7000", "localhost:7001", "localhost:7002"},
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	total, err := client.DBSize(ctx) // summed across all masters
//
// Commands outside the built-in surface go through the executor:
//
//	res, err := cluster.ExecuteOnAllNodes(ctx, client.Executor(),
//		func(ctx context.Context, handle redis.Cmdable) (string, error) {
//			return handle.ConfigGet(ctx, "maxmemory").Val()["maxmemory"], nil
//		})
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,  // optional: structured logging
//		cluster.FXModule, // provides *cluster.Client
//		fx.Provide(func() cluster.Config {
//			return cluster.Config{Addrs: seeds}
//		}),
//	)
//
// # Failure model
//
// Routing errors (unassigned slot, unknown node) surface immediately and
// are never retried here; a stale topology is the caller's to refresh.
// Multi-node operations are all-or-nothing: on any per-node failure the
// call returns a *MultiNodeError with every cause and no partial result.
// Use AsMultiNodeError to inspect individual causes.
package cluster
