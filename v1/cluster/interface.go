package cluster

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClusterCommands is the operation surface of the cluster client:
// broadcast commands over all masters, multi-key commands grouped by
// owning node, and informational commands answered by any node.
//
// This interface is implemented by the concrete *Client type. Callers
// needing commands beyond this surface use Executor() with the generic
// Execute functions, or Shared() for the driver's own routed API.
type ClusterCommands interface {
	// Connection and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Broadcast operations (all master nodes)
	DBSize(ctx context.Context) (int64, error)
	FlushAll(ctx context.Context) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Info(ctx context.Context, sections ...string) (map[string]string, error)

	// Multi-key operations (grouped by owning node)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	SUnion(ctx context.Context, keys ...string) ([]string, error)
	Rename(ctx context.Context, src, dst string) error

	// Arbitrary-node operations
	Time(ctx context.Context) (time.Time, error)
	RandomKey(ctx context.Context) (string, error)
	ClusterInfo(ctx context.Context) (string, error)

	// Routing and escape hatches
	Topology(ctx context.Context) (*ClusterTopology, error)
	Executor() *Executor
	Shared() *redis.ClusterClient
}

var _ ClusterCommands = (*Client)(nil)
