package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ResourceProvider maps a ClusterNode to a live command handle scoped to
// that specific node, bypassing any cluster-aware routing the driver would
// normally apply. The executor already knows the target; the handle must
// talk to exactly that node.
//
// Handles obtained here are owned by the acquiring caller until returned.
// Within one multi-node dispatch each unit acquires and returns its own
// handle, even when two units target the same node.
type ResourceProvider interface {
	// GetResourceForSpecificNode returns a handle for issuing commands to
	// the given node. Fails with an error wrapping ErrUnknownNode when the
	// node cannot be addressed.
	GetResourceForSpecificNode(ctx context.Context, node ClusterNode) (redis.Cmdable, error)

	// ReturnResourceForSpecificNode gives a handle back after use. The
	// default implementation is a no-op; a pooled implementation can be
	// substituted without changing the executor.
	ReturnResourceForSpecificNode(node ClusterNode, handle redis.Cmdable)

	// Close releases everything the provider owns. Safe to call more than
	// once; only the first call closes anything.
	Close() error
}

// nodeClientProvider is the default ResourceProvider. It lazily creates
// one node-scoped go-redis client per node address on first use and hands
// the same client out as the handle for every subsequent request to that
// node. go-redis clients are safe for concurrent use, so sharing one per
// node is sound; Return is therefore a no-op.
type nodeClientProvider struct {
	// newOptions produces connection options for a node address, so the
	// provider stays ignorant of auth, TLS, and pool configuration.
	newOptions func(addr string) *redis.Options

	mu      sync.Mutex
	clients map[string]*redis.Client
	closed  bool
}

// NewResourceProvider returns the default provider. newOptions is called
// once per distinct node address, on first use, to build that node's
// connection options.
func NewResourceProvider(newOptions func(addr string) *redis.Options) ResourceProvider {
	return &nodeClientProvider{
		newOptions: newOptions,
		clients:    make(map[string]*redis.Client),
	}
}

func (p *nodeClientProvider) GetResourceForSpecificNode(ctx context.Context, node ClusterNode) (redis.Cmdable, error) {
	if node.Host == "" || node.Port == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}

	addr := node.Addr()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if client, ok := p.clients[addr]; ok {
		return client, nil
	}

	// First caller for this node creates the client; the lock guarantees
	// concurrent first-callers cannot race to create duplicates.
	client := redis.NewClient(p.newOptions(addr))
	p.clients[addr] = client
	return client, nil
}

func (p *nodeClientProvider) ReturnResourceForSpecificNode(ClusterNode, redis.Cmdable) {
	// Handles are shared per-node clients, nothing to give back.
}

func (p *nodeClientProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for addr, client := range p.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", addr, err))
		}
	}
	p.clients = nil
	return errors.Join(errs...)
}
