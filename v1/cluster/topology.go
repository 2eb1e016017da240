package cluster

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NodeRole distinguishes masters from replicas in a cluster topology.
type NodeRole string

const (
	// RoleMaster marks a node that owns hash slots
	RoleMaster NodeRole = "master"

	// RoleReplica marks a node replicating a master; replicas own no slots
	// and carry their master's ID in MasterID
	RoleReplica NodeRole = "replica"
)

// LinkState reflects the cluster bus link to a node as reported by the
// node answering the topology query.
type LinkState string

const (
	// LinkStateConnected means the cluster bus link to the node is up
	LinkStateConnected LinkState = "connected"

	// LinkStateDisconnected means the cluster bus link to the node is down
	LinkStateDisconnected LinkState = "disconnected"
)

// SlotRange is a contiguous inclusive range of hash slots owned by one
// master node.
type SlotRange struct {
	// Start is the first slot of the range
	Start int

	// End is the last slot of the range, inclusive. A single-slot range
	// has Start == End.
	End int
}

// Contains reports whether the given slot falls inside the range.
func (r SlotRange) Contains(slot int) bool {
	return slot >= r.Start && slot <= r.End
}

func (r SlotRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ClusterNode identifies one member of a Redis Cluster.
//
// For routing purposes node identity is the cluster-assigned ID, not
// host:port: host and port can change on failover while the ID stays
// stable within a cluster epoch. A ClusterNode constructed by hand (for
// example from user input) may carry only Host and Port; Lookup on a
// topology resolves such a hint to the canonical record.
//
// ClusterNode is an immutable value. Topology refreshes produce fresh
// instances rather than mutating existing ones.
type ClusterNode struct {
	// Host is the node's hostname or IP address
	Host string

	// Port is the node's client port
	Port int

	// ID is the cluster-assigned 40-hex-character node ID.
	// Empty on hand-constructed hints.
	ID string

	// Role is the node's role at snapshot time
	Role NodeRole

	// MasterID is the ID of the replicated master; set only on replicas
	MasterID string

	// Link is the cluster bus link state at snapshot time
	Link LinkState

	// SlotRanges are the slot ranges the node owns; only masters own slots
	SlotRanges []SlotRange
}

// NewNode constructs a node hint from host and port only. The returned
// value has no ID and no slot information; resolve it against a topology
// with Lookup before relying on either.
func NewNode(host string, port int) ClusterNode {
	return ClusterNode{Host: host, Port: port}
}

// Addr returns the host:port address of the node.
func (n ClusterNode) Addr() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// IsMaster reports whether the node was a master at snapshot time.
func (n ClusterNode) IsMaster() bool {
	return n.Role == RoleMaster
}

// OwnsSlot reports whether the node owned the given slot at snapshot time.
func (n ClusterNode) OwnsSlot(slot int) bool {
	for _, r := range n.SlotRanges {
		if r.Contains(slot) {
			return true
		}
	}
	return false
}

func (n ClusterNode) String() string {
	if n.ID != "" {
		return fmt.Sprintf("%s(%s)", n.Addr(), n.ID)
	}
	return n.Addr()
}

// ClusterTopology is an immutable snapshot of the cluster's membership and
// slot ownership, with derived lookup indexes.
//
// A new snapshot entirely replaces the old one on refresh; snapshots are
// never patched in place, so a reader can never observe a half-updated
// slot map. During resharding the slot space may contain gaps or overlaps;
// that is an observable runtime condition, not a parse error.
type ClusterTopology struct {
	nodes  []ClusterNode
	byID   map[string]int
	bySlot [SlotCount]int // index into nodes, -1 when unassigned
}

// NewTopology builds a snapshot from the given nodes and derives the
// slot and ID indexes. When two masters claim the same slot (mid-reshard),
// the later node in the input wins the index entry.
func NewTopology(nodes []ClusterNode) *ClusterTopology {
	t := &ClusterTopology{
		nodes: nodes,
		byID:  make(map[string]int, len(nodes)),
	}
	for i := range t.bySlot {
		t.bySlot[i] = -1
	}
	for i, n := range nodes {
		if n.ID != "" {
			t.byID[n.ID] = i
		}
		for _, r := range n.SlotRanges {
			for s := r.Start; s <= r.End && s < SlotCount; s++ {
				t.bySlot[s] = i
			}
		}
	}
	return t
}

// All returns every node in the snapshot, masters and replicas alike.
// The returned slice is a copy and safe to modify.
func (t *ClusterTopology) All() []ClusterNode {
	out := make([]ClusterNode, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Masters returns the master nodes of the snapshot in input order.
func (t *ClusterTopology) Masters() []ClusterNode {
	var out []ClusterNode
	for _, n := range t.nodes {
		if n.IsMaster() {
			out = append(out, n)
		}
	}
	return out
}

// NodeByID resolves a cluster-assigned node ID to its node record.
// Returns ErrNodeNotFound when the ID is unknown to this snapshot.
func (t *ClusterTopology) NodeByID(id string) (ClusterNode, error) {
	if i, ok := t.byID[id]; ok {
		return t.nodes[i], nil
	}
	return ClusterNode{}, fmt.Errorf("%w: id %q", ErrNodeNotFound, id)
}

// NodeForSlot resolves a hash slot to its owning master.
// Returns ErrSlotNotAssigned when the slot has no owner in this snapshot,
// which is a valid transient state during resharding.
func (t *ClusterTopology) NodeForSlot(slot int) (ClusterNode, error) {
	if slot < 0 || slot >= SlotCount {
		return ClusterNode{}, fmt.Errorf("%w: slot %d out of range", ErrSlotNotAssigned, slot)
	}
	i := t.bySlot[slot]
	if i == -1 {
		return ClusterNode{}, fmt.Errorf("%w: slot %d", ErrSlotNotAssigned, slot)
	}
	return t.nodes[i], nil
}

// NodeForKey resolves a key to the master owning its hash slot.
func (t *ClusterTopology) NodeForKey(key []byte) (ClusterNode, error) {
	return t.NodeForSlot(Slot(key))
}

// Lookup resolves a possibly stale node reference to the canonical current
// record. Matching is by ID first, then by host:port, so a hint built from
// user input with only an address still resolves to the full record with
// ID and slot ownership populated.
//
// Returns ErrNodeNotFound when the hinted node no longer exists in the
// cluster.
func (t *ClusterTopology) Lookup(hint ClusterNode) (ClusterNode, error) {
	if hint.ID != "" {
		if n, err := t.NodeByID(hint.ID); err == nil {
			return n, nil
		}
	}
	addr := hint.Addr()
	for _, n := range t.nodes {
		if n.Addr() == addr {
			return n, nil
		}
	}
	return ClusterNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, hint)
}

// ParseClusterNodes parses the raw reply of the CLUSTER NODES command into
// a topology snapshot.
//
// Each line has the form:
//
//	<id> <ip:port@cport> <flags> <master> <ping-sent> <pong-recv> <config-epoch> <link-state> <slot> <slot> ...
//
// Slot entries are single slots ("5461"), inclusive ranges ("0-5460"), or
// bracketed migration markers ("[93->-<id>]", "[77-<-<id>]"). Migration
// markers describe in-flight slot moves and are skipped: until the
// migration completes the slot still belongs to its current owner.
//
// Nodes flagged handshake or noaddr are omitted; they are not addressable
// targets for command execution.
func ParseClusterNodes(raw string) (*ClusterTopology, error) {
	var nodes []ClusterNode

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 {
			return nil, fmt.Errorf("cluster: malformed CLUSTER NODES line %q", line)
		}

		flags := strings.Split(fields[2], ",")
		if hasFlag(flags, "handshake") || hasFlag(flags, "noaddr") {
			continue
		}

		host, port, err := parseNodeAddr(fields[1])
		if err != nil {
			return nil, fmt.Errorf("cluster: line %q: %w", line, err)
		}

		node := ClusterNode{
			Host: host,
			Port: port,
			ID:   fields[0],
			Role: RoleReplica,
			Link: LinkState(fields[7]),
		}

		if hasFlag(flags, "master") {
			node.Role = RoleMaster
		} else if fields[3] != "-" {
			node.MasterID = fields[3]
		}

		for _, entry := range fields[8:] {
			if strings.HasPrefix(entry, "[") {
				// Importing/migrating marker; ownership has not changed yet.
				continue
			}
			r, err := parseSlotRange(entry)
			if err != nil {
				return nil, fmt.Errorf("cluster: line %q: %w", line, err)
			}
			node.SlotRanges = append(node.SlotRanges, r)
		}

		nodes = append(nodes, node)
	}

	return NewTopology(nodes), nil
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// parseNodeAddr splits an "ip:port" or "ip:port@cport" address field.
func parseNodeAddr(addr string) (string, int, error) {
	if at := strings.IndexByte(addr, '@'); at != -1 {
		addr = addr[:at]
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("bad port %q: %w", portStr, err)
	}
	return host, port, nil
}

func parseSlotRange(entry string) (SlotRange, error) {
	if dash := strings.IndexByte(entry, '-'); dash != -1 {
		start, err := strconv.Atoi(entry[:dash])
		if err != nil {
			return SlotRange{}, fmt.Errorf("bad slot range %q: %w", entry, err)
		}
		end, err := strconv.Atoi(entry[dash+1:])
		if err != nil {
			return SlotRange{}, fmt.Errorf("bad slot range %q: %w", entry, err)
		}
		return SlotRange{Start: start, End: end}, nil
	}
	slot, err := strconv.Atoi(entry)
	if err != nil {
		return SlotRange{}, fmt.Errorf("bad slot %q: %w", entry, err)
	}
	return SlotRange{Start: slot, End: slot}, nil
}

// TopologyProvider supplies the current cluster topology on demand.
//
// The default provider queries a live cluster for every call and imposes
// no caching contract; wrap it in a CachedTopologyProvider when repeated
// lookups within a short window should share one snapshot.
type TopologyProvider interface {
	// Topology returns the current topology snapshot.
	// Fails with an error wrapping ErrNoReachableNode when no node can be
	// reached to answer the query.
	Topology(ctx context.Context) (*ClusterTopology, error)
}

// goRedisTopologyProvider queries CLUSTER NODES through a shared go-redis
// client and parses the reply.
type goRedisTopologyProvider struct {
	client redis.UniversalClient
}

// NewTopologyProvider returns a TopologyProvider backed by the given
// go-redis client. The client may be a cluster client (any reachable node
// answers) or a single-node client pointed at a cluster member.
func NewTopologyProvider(client redis.UniversalClient) TopologyProvider {
	return &goRedisTopologyProvider{client: client}
}

func (p *goRedisTopologyProvider) Topology(ctx context.Context) (*ClusterTopology, error) {
	raw, err := p.client.ClusterNodes(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoReachableNode, err)
	}
	return ParseClusterNodes(raw)
}

// CachedTopologyProvider decorates another provider with a time-based
// cache. All callers within TTL of the last fetch share one snapshot;
// Refresh forces a new fetch regardless of age.
type CachedTopologyProvider struct {
	inner TopologyProvider
	ttl   time.Duration

	mu        sync.Mutex
	snapshot  *ClusterTopology
	fetchedAt time.Time
}

// NewCachedTopologyProvider wraps inner with a TTL cache.
// A non-positive ttl disables expiry; the first snapshot is then reused
// until Refresh is called.
func NewCachedTopologyProvider(inner TopologyProvider, ttl time.Duration) *CachedTopologyProvider {
	return &CachedTopologyProvider{inner: inner, ttl: ttl}
}

// Topology returns the cached snapshot when fresh, fetching a new one
// otherwise.
func (p *CachedTopologyProvider) Topology(ctx context.Context) (*ClusterTopology, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.snapshot != nil && (p.ttl <= 0 || time.Since(p.fetchedAt) < p.ttl) {
		return p.snapshot, nil
	}
	return p.refreshLocked(ctx)
}

// Refresh discards the cached snapshot and fetches the current topology.
func (p *CachedTopologyProvider) Refresh(ctx context.Context) (*ClusterTopology, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked(ctx)
}

func (p *CachedTopologyProvider) refreshLocked(ctx context.Context) (*ClusterTopology, error) {
	snapshot, err := p.inner.Topology(ctx)
	if err != nil {
		return nil, err
	}
	p.snapshot = snapshot
	p.fetchedAt = time.Now()
	return snapshot, nil
}
