package cluster

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodeOptions(addr string) *redis.Options {
	return &redis.Options{Addr: addr}
}

func TestResourceProviderHandleReuse(t *testing.T) {
	ctx := context.Background()
	p := NewResourceProvider(testNodeOptions)
	defer p.Close()

	nodeA := ClusterNode{Host: "10.0.0.1", Port: 7001, ID: "a"}
	nodeB := ClusterNode{Host: "10.0.0.2", Port: 7002, ID: "b"}

	h1, err := p.GetResourceForSpecificNode(ctx, nodeA)
	require.NoError(t, err)
	h2, err := p.GetResourceForSpecificNode(ctx, nodeA)
	require.NoError(t, err)
	assert.Same(t, h1, h2, "same node gets the same underlying client")

	h3, err := p.GetResourceForSpecificNode(ctx, nodeB)
	require.NoError(t, err)
	assert.NotSame(t, h1, h3, "distinct nodes get distinct clients")

	p.ReturnResourceForSpecificNode(nodeA, h1)
	p.ReturnResourceForSpecificNode(nodeA, h2)
}

func TestResourceProviderConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()
	p := NewResourceProvider(testNodeOptions)
	defer p.Close()

	node := ClusterNode{Host: "10.0.0.1", Port: 7001, ID: "a"}

	const callers = 32
	handles := make([]redis.Cmdable, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.GetResourceForSpecificNode(ctx, node)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, handles[0], handles[i],
			"concurrent first-callers must not create duplicate clients")
	}
}

func TestResourceProviderUnknownNode(t *testing.T) {
	ctx := context.Background()
	p := NewResourceProvider(testNodeOptions)
	defer p.Close()

	_, err := p.GetResourceForSpecificNode(ctx, ClusterNode{ID: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestResourceProviderIdempotentClose(t *testing.T) {
	ctx := context.Background()
	p := NewResourceProvider(testNodeOptions)

	_, err := p.GetResourceForSpecificNode(ctx, ClusterNode{Host: "10.0.0.1", Port: 7001})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "second close must be a no-op")

	_, err = p.GetResourceForSpecificNode(ctx, ClusterNode{Host: "10.0.0.1", Port: 7001})
	assert.ErrorIs(t, err, ErrClosed)
}
