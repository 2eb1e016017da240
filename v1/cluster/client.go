package cluster

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ping checks every master node and returns an error unless all of them
// answered. A partial outage surfaces as a *MultiNodeError carrying one
// cause per unreachable node.
func (c *Client) Ping(ctx context.Context) error {
	_, err := ExecuteOnAllNodes(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.Ping(ctx).Result()
	})
	return err
}

// DBSize returns the total number of keys in the cluster, summed across
// all master nodes.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	res, err := ExecuteOnAllNodes(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (int64, error) {
		return handle.DBSize(ctx).Result()
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, n := range res.Values() {
		total += n
	}
	return total, nil
}

// FlushAll removes all keys from every master node. Broadcast semantics:
// either every node flushed, or the call fails with the full per-node
// cause list.
func (c *Client) FlushAll(ctx context.Context) error {
	_, err := ExecuteOnAllNodes(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.FlushAll(ctx).Result()
	})
	return err
}

// Keys returns all keys matching pattern, unioned across all master nodes
// and sorted for deterministic output.
//
// KEYS is a full keyspace scan on every node; prefer cursor-based scans on
// the driver for large production keyspaces.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	res, err := ExecuteOnAllNodes(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) ([]string, error) {
		return handle.Keys(ctx, pattern).Result()
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, keys := range res.Values() {
		for _, k := range keys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Exists returns how many of the given keys exist, grouping the keys by
// owning node and issuing one EXISTS per node with its subset.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	res, err := ExecuteMultiKeyCommand(ctx, c.executor, toByteKeys(keys), func(ctx context.Context, handle redis.Cmdable, nodeKeys [][]byte) (int64, error) {
		return handle.Exists(ctx, toStringKeys(nodeKeys)...).Result()
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, n := range res.Values() {
		total += n
	}
	return total, nil
}

// Del deletes the given keys, grouping them by owning node, and returns
// the number of keys removed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	res, err := ExecuteMultiKeyCommand(ctx, c.executor, toByteKeys(keys), func(ctx context.Context, handle redis.Cmdable, nodeKeys [][]byte) (int64, error) {
		return handle.Del(ctx, toStringKeys(nodeKeys)...).Result()
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, n := range res.Values() {
		total += n
	}
	return total, nil
}

// SUnion returns the union of the given sets even when the keys span
// slots and nodes. Keys sharing one slot are unioned server-side with a
// single SUNION; otherwise the union is emulated by fetching each set's
// members per owning node and merging client-side.
func (c *Client) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	byteKeys := toByteKeys(keys)

	if SameSlot(byteKeys...) {
		owner, err := c.ownerOf(ctx, byteKeys[0])
		if err != nil {
			return nil, err
		}
		res, err := ExecuteOnSingleNode(ctx, c.executor, owner, func(ctx context.Context, handle redis.Cmdable) ([]string, error) {
			return handle.SUnion(ctx, keys...).Result()
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(res.Value)
		return res.Value, nil
	}

	res, err := ExecuteMultiKeyCommand(ctx, c.executor, byteKeys, func(ctx context.Context, handle redis.Cmdable, nodeKeys [][]byte) ([]string, error) {
		var members []string
		for _, key := range nodeKeys {
			vals, err := handle.SMembers(ctx, string(key)).Result()
			if err != nil {
				return nil, err
			}
			members = append(members, vals...)
		}
		return members, nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, members := range res.Values() {
		for _, m := range members {
			if _, dup := seen[m]; !dup {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Rename renames src to dst. When both keys hash to one slot the rename is
// a single server-side RENAME on the owning node. Across slots the server
// would reject RENAME, so it is emulated: DUMP src, RESTORE the payload at
// dst on its owning node (preserving the remaining TTL, replacing any
// existing value to match RENAME semantics), then DEL src.
//
// The emulated form is not atomic: a crash between RESTORE and DEL leaves
// both keys in place.
func (c *Client) Rename(ctx context.Context, src, dst string) error {
	srcKey, dstKey := []byte(src), []byte(dst)

	srcOwner, err := c.ownerOf(ctx, srcKey)
	if err != nil {
		return err
	}

	if SameSlot(srcKey, dstKey) {
		_, err := ExecuteOnSingleNode(ctx, c.executor, srcOwner, func(ctx context.Context, handle redis.Cmdable) (string, error) {
			return handle.Rename(ctx, src, dst).Result()
		})
		return err
	}

	dstOwner, err := c.ownerOf(ctx, dstKey)
	if err != nil {
		return err
	}

	type dumped struct {
		payload string
		ttl     time.Duration
	}

	srcRes, err := ExecuteOnSingleNode(ctx, c.executor, srcOwner, func(ctx context.Context, handle redis.Cmdable) (dumped, error) {
		payload, err := handle.Dump(ctx, src).Result()
		if err != nil {
			return dumped{}, err
		}
		ttl, err := handle.PTTL(ctx, src).Result()
		if err != nil {
			return dumped{}, err
		}
		if ttl < 0 {
			// -1 no expiry, -2 gone between DUMP and PTTL; restore without TTL
			ttl = 0
		}
		return dumped{payload: payload, ttl: ttl}, nil
	})
	if err != nil {
		return err
	}

	if _, err := ExecuteOnSingleNode(ctx, c.executor, dstOwner, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.RestoreReplace(ctx, dst, srcRes.Value.ttl, srcRes.Value.payload).Result()
	}); err != nil {
		return err
	}

	_, err = ExecuteOnSingleNode(ctx, c.executor, srcOwner, func(ctx context.Context, handle redis.Cmdable) (int64, error) {
		return handle.Del(ctx, src).Result()
	})
	return err
}

// Time returns the current time of one arbitrarily chosen node.
func (c *Client) Time(ctx context.Context) (time.Time, error) {
	res, err := ExecuteOnArbitraryNode(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (time.Time, error) {
		return handle.Time(ctx).Result()
	})
	if err != nil {
		return time.Time{}, err
	}
	return res.Value, nil
}

// RandomKey returns a random key from one arbitrarily chosen node.
// Returns redis.Nil when that node's keyspace is empty.
func (c *Client) RandomKey(ctx context.Context) (string, error) {
	res, err := ExecuteOnArbitraryNode(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.RandomKey(ctx).Result()
	})
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// ClusterInfo returns the CLUSTER INFO reply of one arbitrarily chosen
// node; any node's answer suffices for cluster-wide state.
func (c *Client) ClusterInfo(ctx context.Context) (string, error) {
	res, err := ExecuteOnArbitraryNode(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.ClusterInfo(ctx).Result()
	})
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// Info returns the INFO reply of every master node, keyed by node address.
func (c *Client) Info(ctx context.Context, sections ...string) (map[string]string, error) {
	res, err := ExecuteOnAllNodes(ctx, c.executor, func(ctx context.Context, handle redis.Cmdable) (string, error) {
		return handle.Info(ctx, sections...).Result()
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, res.Len())
	for _, r := range res.Results {
		out[r.Node.Addr()] = r.Value
	}
	return out, nil
}

// ownerOf resolves the master owning key's hash slot.
func (c *Client) ownerOf(ctx context.Context, key []byte) (ClusterNode, error) {
	topology, err := c.topology.Topology(ctx)
	if err != nil {
		return ClusterNode{}, err
	}
	return topology.NodeForKey(key)
}

func toByteKeys(keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = []byte(k)
	}
	return out
}

func toStringKeys(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
