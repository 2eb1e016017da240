package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterNodesSample mimics a healthy 3-master/3-replica cluster reply,
// including a cluster bus port suffix, a migrating-slot marker, and a
// handshake line that must be skipped.
const clusterNodesSample = `07c37dfeb235213a872192d90877d0cd55635b91 10.0.0.4:7004@17004 slave e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca 0 1426238317239 4 connected
67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1 10.0.0.2:7002@17002 master - 0 1426238316232 2 connected 5461-10922
292f8b365bb7edb5e285caf0b7e6ddc7265d2f4f 10.0.0.3:7003@17003 master - 0 1426238318243 3 connected 10923-16383 [93->-292f8b365bb7edb5e285caf0b7e6ddc7265d2f4f]
6ec23923021cf3ffec47632106199cb7f496ce01 10.0.0.5:7005@17005 slave 67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1 0 1426238316232 5 connected
824fe116063bc5fcf9f4ffd895bc17aee7731ac3 10.0.0.6:7006@17006 slave 292f8b365bb7edb5e285caf0b7e6ddc7265d2f4f 0 1426238317741 6 connected
e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca 10.0.0.1:7001@17001 myself,master - 0 0 1 connected 0-5460
0000000000000000000000000000000000000000 :0@0 handshake - 0 0 0 disconnected
`

func TestParseClusterNodes(t *testing.T) {
	topo, err := ParseClusterNodes(clusterNodesSample)
	require.NoError(t, err)

	all := topo.All()
	assert.Len(t, all, 6, "handshake line must be skipped")

	masters := topo.Masters()
	require.Len(t, masters, 3)

	first, err := topo.NodeByID("e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", first.Host)
	assert.Equal(t, 7001, first.Port)
	assert.True(t, first.IsMaster())
	assert.Equal(t, LinkStateConnected, first.Link)
	assert.Equal(t, []SlotRange{{Start: 0, End: 5460}}, first.SlotRanges)

	replica, err := topo.NodeByID("07c37dfeb235213a872192d90877d0cd55635b91")
	require.NoError(t, err)
	assert.Equal(t, RoleReplica, replica.Role)
	assert.Equal(t, "e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca", replica.MasterID)
	assert.Empty(t, replica.SlotRanges)
}

func TestParseClusterNodesMigrationMarkerIgnored(t *testing.T) {
	topo, err := ParseClusterNodes(clusterNodesSample)
	require.NoError(t, err)

	// Slot 93 belongs to the 0-5460 master; the [93->-...] marker on the
	// third line must not move it.
	owner, err := topo.NodeForSlot(93)
	require.NoError(t, err)
	assert.Equal(t, "e7d1eecce10fd6bb5eb35b9f99a514335d9ba9ca", owner.ID)
}

func TestParseClusterNodesMalformed(t *testing.T) {
	_, err := ParseClusterNodes("too short line\n")
	assert.Error(t, err)

	_, err = ParseClusterNodes("id 10.0.0.1:badport master - 0 0 1 connected\n")
	assert.Error(t, err)
}

func TestNodeForSlot(t *testing.T) {
	topo, err := ParseClusterNodes(clusterNodesSample)
	require.NoError(t, err)

	owner, err := topo.NodeForSlot(0)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", owner.Host)

	owner, err = topo.NodeForSlot(16383)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", owner.Host)

	_, err = topo.NodeForSlot(-1)
	assert.ErrorIs(t, err, ErrSlotNotAssigned)
	_, err = topo.NodeForSlot(SlotCount)
	assert.ErrorIs(t, err, ErrSlotNotAssigned)
}

func TestNodeForSlotUnassigned(t *testing.T) {
	// A topology mid-reshard can have ownerless slots; that is a routing
	// error, not a parse error.
	topo := NewTopology([]ClusterNode{
		{Host: "10.0.0.1", Port: 7001, ID: "a", Role: RoleMaster, SlotRanges: []SlotRange{{Start: 0, End: 100}}},
	})

	_, err := topo.NodeForSlot(101)
	assert.ErrorIs(t, err, ErrSlotNotAssigned)
	assert.True(t, IsRoutingError(err))
}

func TestLookup(t *testing.T) {
	topo, err := ParseClusterNodes(clusterNodesSample)
	require.NoError(t, err)

	t.Run("by host and port", func(t *testing.T) {
		// A hint carrying only an address resolves to the canonical record
		// with its cluster ID populated.
		resolved, err := topo.Lookup(NewNode("10.0.0.2", 7002))
		require.NoError(t, err)
		assert.Equal(t, "67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1", resolved.ID)
		assert.Equal(t, []SlotRange{{Start: 5461, End: 10922}}, resolved.SlotRanges)
	})

	t.Run("by id wins over stale address", func(t *testing.T) {
		hint := ClusterNode{ID: "67ed2db8d677e59ec4a4cefb06858cf2a1a89fa1", Host: "10.9.9.9", Port: 9999}
		resolved, err := topo.Lookup(hint)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.2", resolved.Host)
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := topo.Lookup(NewNode("10.0.0.99", 7999))
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestTopologySnapshotIsolation(t *testing.T) {
	topo, err := ParseClusterNodes(clusterNodesSample)
	require.NoError(t, err)

	all := topo.All()
	all[0] = ClusterNode{Host: "mutated"}

	again := topo.All()
	assert.NotEqual(t, "mutated", again[0].Host, "All must return a copy")
}

// countingProvider counts fetches, for cache behavior tests.
type countingProvider struct {
	calls int
	topo  *ClusterTopology
	err   error
}

func (p *countingProvider) Topology(context.Context) (*ClusterTopology, error) {
	p.calls++
	return p.topo, p.err
}

func TestCachedTopologyProvider(t *testing.T) {
	ctx := context.Background()
	topo := NewTopology([]ClusterNode{{Host: "h", Port: 1, ID: "a", Role: RoleMaster}})

	t.Run("shares one snapshot within ttl", func(t *testing.T) {
		inner := &countingProvider{topo: topo}
		cached := NewCachedTopologyProvider(inner, time.Minute)

		for i := 0; i < 5; i++ {
			got, err := cached.Topology(ctx)
			require.NoError(t, err)
			assert.Same(t, topo, got)
		}
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("refresh forces a fetch", func(t *testing.T) {
		inner := &countingProvider{topo: topo}
		cached := NewCachedTopologyProvider(inner, time.Minute)

		_, err := cached.Topology(ctx)
		require.NoError(t, err)
		_, err = cached.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, inner.calls)
	})

	t.Run("fetch error is not cached", func(t *testing.T) {
		inner := &countingProvider{err: errors.New("boom")}
		cached := NewCachedTopologyProvider(inner, time.Minute)

		_, err := cached.Topology(ctx)
		assert.Error(t, err)
		_, err = cached.Topology(ctx)
		assert.Error(t, err)
		assert.Equal(t, 2, inner.calls)
	})
}
