package cluster

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

const (
	clusterInitialPort = 7000
	clusterNodeCount   = 6
)

// TestClusterBasicOperations verifies broadcast and routing operations
// against a real six-node cluster.
func TestClusterBasicOperations(t *testing.T) {
	// Skip if running in short mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	addrs, containerInstance := initializeCluster(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var client *Client

	cfg := Config{
		Addrs: addrs,
	}

	app := fx.New(
		FXModule,
		fx.Provide(
			func() Config { return cfg },
		),
		fx.Populate(&client),
	)

	require.NoError(t, app.Start(ctx))
	defer app.Stop(ctx)

	t.Run("Ping all masters", func(t *testing.T) {
		err := client.Ping(ctx)
		require.NoError(t, err)
	})

	t.Run("Topology has full slot coverage", func(t *testing.T) {
		topo, err := client.Topology(ctx)
		require.NoError(t, err)

		masters := topo.Masters()
		assert.Len(t, masters, 3)

		for slot := 0; slot < SlotCount; slot++ {
			_, err := topo.NodeForSlot(slot)
			require.NoError(t, err, "slot %d unassigned", slot)
		}
	})

	t.Run("DBSize sums across masters", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))

		// Keys with distinct hash tags land on different masters.
		seedKeys(ctx, t, client, "size:{a}", "size:{b}", "size:{c}", "size:{d}")

		total, err := client.DBSize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})

	t.Run("Keys unions all masters", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))
		seedKeys(ctx, t, client, "keys:{a}", "keys:{b}", "keys:{c}")

		keys, err := client.Keys(ctx, "keys:*")
		require.NoError(t, err)
		assert.Equal(t, []string{"keys:{a}", "keys:{b}", "keys:{c}"}, keys)
		assert.True(t, sort.StringsAreSorted(keys))
	})

	t.Run("Exists counts keys across slots", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))
		seedKeys(ctx, t, client, "exists:{a}", "exists:{b}")

		count, err := client.Exists(ctx, "exists:{a}", "exists:{b}", "exists:{missing}")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Del removes keys across slots", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))
		seedKeys(ctx, t, client, "del:{a}", "del:{b}", "del:{c}")

		removed, err := client.Del(ctx, "del:{a}", "del:{b}", "del:{c}")
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)

		total, err := client.DBSize(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

// TestClusterCrossSlotOperations verifies the operations that emulate
// multi-key semantics the server itself rejects with CROSSSLOT.
func TestClusterCrossSlotOperations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	addrs, containerInstance := initializeCluster(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var client *Client

	cfg := Config{
		Addrs: addrs,
	}

	app := fx.New(
		FXModule,
		fx.Provide(
			func() Config { return cfg },
		),
		fx.Populate(&client),
	)

	require.NoError(t, app.Start(ctx))
	defer app.Stop(ctx)

	t.Run("Rename across slots", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))

		// "foo" and "bar" hash to slots owned by different masters in the
		// default three-master split.
		require.NoError(t, client.Shared().Set(ctx, "bar", "payload", 10*time.Minute).Err())

		err := client.Rename(ctx, "bar", "foo")
		require.NoError(t, err)

		value, err := client.Shared().Get(ctx, "foo").Result()
		require.NoError(t, err)
		assert.Equal(t, "payload", value)

		// The source must be gone and the TTL carried over.
		exists, err := client.Exists(ctx, "bar")
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)

		ttl, err := client.Shared().TTL(ctx, "foo").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("Rename within a slot", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))
		require.NoError(t, client.Shared().Set(ctx, "{tag}src", "v", 0).Err())

		err := client.Rename(ctx, "{tag}src", "{tag}dst")
		require.NoError(t, err)

		value, err := client.Shared().Get(ctx, "{tag}dst").Result()
		require.NoError(t, err)
		assert.Equal(t, "v", value)
	})

	t.Run("SUnion across slots", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))

		require.NoError(t, client.Shared().SAdd(ctx, "set:{a}", "one", "two").Err())
		require.NoError(t, client.Shared().SAdd(ctx, "set:{b}", "two", "three").Err())

		members, err := client.SUnion(ctx, "set:{a}", "set:{b}")
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "three", "two"}, members)
	})

	t.Run("Rename missing source", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))

		err := client.Rename(ctx, "bar", "foo")
		assert.Error(t, err)
	})
}

// TestClusterInformationalCommands verifies the arbitrary-node and
// per-node informational operations.
func TestClusterInformationalCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	addrs, containerInstance := initializeCluster(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var client *Client

	cfg := Config{
		Addrs: addrs,
	}

	app := fx.New(
		FXModule,
		fx.Provide(
			func() Config { return cfg },
		),
		fx.Populate(&client),
	)

	require.NoError(t, app.Start(ctx))
	defer app.Stop(ctx)

	t.Run("ClusterInfo reports cluster ok", func(t *testing.T) {
		info, err := client.ClusterInfo(ctx)
		require.NoError(t, err)
		assert.Contains(t, info, "cluster_state:ok")
	})

	t.Run("Time returns a server clock", func(t *testing.T) {
		serverTime, err := client.Time(ctx)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), serverTime, time.Minute)
	})

	t.Run("Info keyed by node address", func(t *testing.T) {
		infos, err := client.Info(ctx)
		require.NoError(t, err)
		assert.Len(t, infos, 3)
		for addr, section := range infos {
			assert.NotEmpty(t, addr)
			assert.Contains(t, section, "redis_version")
		}
	})

	t.Run("RandomKey after seeding", func(t *testing.T) {
		require.NoError(t, client.FlushAll(ctx))
		seedKeys(ctx, t, client, "rnd:{a}", "rnd:{b}", "rnd:{c}")

		// RandomKey targets one arbitrary node; retry until a node with
		// data answers.
		require.Eventually(t, func() bool {
			key, err := client.RandomKey(ctx)
			return err == nil && strings.HasPrefix(key, "rnd:")
		}, 10*time.Second, 100*time.Millisecond)
	})
}

// TestClusterDirectExecutor exercises the executor surface without going
// through the Client convenience operations.
func TestClusterDirectExecutor(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	addrs, containerInstance := initializeCluster(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	client, err := NewClient(Config{Addrs: addrs, MaxWorkers: 2})
	require.NoError(t, err)
	defer client.Close()

	t.Run("ExecuteOnSingleNode by stable ID", func(t *testing.T) {
		topo, err := client.Topology(ctx)
		require.NoError(t, err)
		master := topo.Masters()[0]

		// Resolve by ID alone; the executor fills in the address.
		result, err := ExecuteOnSingleNode(ctx, client.Executor(), ClusterNode{ID: master.ID}, pingCommand)
		require.NoError(t, err)
		assert.Equal(t, master.Addr(), result.Node.Addr())
		assert.Equal(t, "PONG", result.Value)
	})

	t.Run("ExecuteOnAllNodes preserves node order", func(t *testing.T) {
		topo, err := client.Topology(ctx)
		require.NoError(t, err)

		results, err := ExecuteOnAllNodes(ctx, client.Executor(), pingCommand)
		require.NoError(t, err)
		require.Equal(t, len(topo.Masters()), results.Len())
		for i, master := range topo.Masters() {
			assert.Equal(t, master.Addr(), results.Results[i].Node.Addr())
		}
	})

	t.Run("Unknown node fails lookup", func(t *testing.T) {
		_, err := ExecuteOnSingleNode(ctx, client.Executor(), NewNode("203.0.113.1", 9999), pingCommand)
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

// Helper functions

func pingCommand(ctx context.Context, handle redis.Cmdable) (string, error) {
	return handle.Ping(ctx).Result()
}

func seedKeys(ctx context.Context, t *testing.T, client *Client, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, client.Shared().Set(ctx, key, "x", 0).Err())
	}
}

func initializeCluster(ctx context.Context, t *testing.T) ([]string, testcontainers.Container) {
	containerInstance, err := createClusterContainer(ctx)
	require.NoError(t, err)

	host, err := containerInstance.Host(ctx)
	require.NoError(t, err)

	addrs := make([]string, 0, clusterNodeCount)
	for i := 0; i < clusterNodeCount; i++ {
		addrs = append(addrs, net.JoinHostPort(host, fmt.Sprintf("%d", clusterInitialPort+i)))
	}

	// Wait until every node's port accepts connections.
	require.Eventually(t, func() bool {
		for _, addr := range addrs {
			conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
			if err != nil {
				return false
			}
			_ = conn.Close()
		}
		return true
	}, 60*time.Second, 500*time.Millisecond, "cluster ports not ready")

	return addrs, containerInstance
}

func createClusterContainer(ctx context.Context) (testcontainers.Container, error) {
	// The image announces the IP passed via env; binding container ports to
	// identical host ports keeps the announced topology reachable from the
	// test process.
	portBindings := nat.PortMap{}
	exposed := make([]string, 0, clusterNodeCount)
	for i := 0; i < clusterNodeCount; i++ {
		port := nat.Port(fmt.Sprintf("%d/tcp", clusterInitialPort+i))
		portBindings[port] = []nat.PortBinding{{HostPort: fmt.Sprintf("%d", clusterInitialPort+i)}}
		exposed = append(exposed, string(port))
	}

	req := testcontainers.ContainerRequest{
		Image:        "grokzen/redis-cluster:7.0.10",
		ExposedPorts: exposed,
		Env: map[string]string{
			"IP":           "0.0.0.0",
			"INITIAL_PORT": fmt.Sprintf("%d", clusterInitialPort),
		},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForLog("Ready to accept connections").WithStartupTimeout(90 * time.Second),
	}

	var containerInstance testcontainers.Container
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		containerInstance, lastErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if lastErr == nil {
			return containerInstance, nil
		}

		if strings.Contains(lastErr.Error(), "docker.sock") {
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		break
	}

	return nil, fmt.Errorf("failed to start cluster container after 3 attempts: %w", lastErr)
}
