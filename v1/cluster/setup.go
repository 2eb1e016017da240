package cluster

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Aleph-Alpha/cluster/v1/observability"
)

// Client is the entry point of the library: a topology-aware Redis Cluster
// client exposing broadcast, multi-key, and node-targeted operations on
// top of the command execution engine.
//
// Client implements the ClusterCommands interface.
type Client struct {
	// executor is the dispatch engine all operations go through
	executor *Executor

	// topology supplies routing snapshots; shared with the executor
	topology TopologyProvider

	// resources owns the per-node command handles
	resources ResourceProvider

	// shared is the driver's own cluster-aware client, used for topology
	// queries and available to callers needing raw driver access
	shared *redis.ClusterClient

	// cfg stores the configuration this client was built from
	cfg Config

	logger   Logger
	observer observability.Observer

	closeOnce sync.Once
	closeErr  error
}

// NewClient creates and initializes a new cluster client from the provided
// configuration.
//
// Parameters:
//   - cfg: Configuration with at least one seed address
//
// Returns a client ready to use; no connection is established until the
// first operation (call Ping to verify reachability eagerly).
//
// Example:
//
//	client, err := cluster.NewClient(cluster.Config{
//		Addrs: []string{"localhost:7000", "localhost:7001", "localhost:7002"},
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("cluster: config needs at least one seed address")
	}

	// Apply defaults
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	// Set up TLS config if enabled
	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	shared := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRedirects: cfg.MaxRedirects,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		TLSConfig:    tlsConfig,
	})

	var topology TopologyProvider = NewTopologyProvider(shared)
	if cfg.TopologyCacheTTL > 0 {
		topology = NewCachedTopologyProvider(topology, cfg.TopologyCacheTTL)
	}

	resources := NewResourceProvider(func(addr string) *redis.Options {
		return &redis.Options{
			Addr:         addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			TLSConfig:    tlsConfig,
		}
	})

	c := &Client{
		topology:  topology,
		resources: resources,
		shared:    shared,
		cfg:       cfg,
		logger:    cfg.Logger,
	}
	c.executor = NewExecutor(topology, resources, ExecutorConfig{
		MaxWorkers: cfg.MaxWorkers,
		Logger:     cfg.Logger,
	})

	if c.logger != nil {
		c.logger.Info("cluster client initialized", nil, map[string]interface{}{
			"seed_addrs": cfg.Addrs,
		})
	}
	return c, nil
}

// createTLSConfig creates a TLS configuration from the provided config
func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ServerName:         cfg.ServerName,
	}

	// Load CA certificate
	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	// Load client certificate
	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Executor returns the dispatch engine, for callers issuing their own
// commands via the generic Execute functions.
func (c *Client) Executor() *Executor {
	return c.executor
}

// Topology returns the current topology snapshot.
func (c *Client) Topology(ctx context.Context) (*ClusterTopology, error) {
	return c.topology.Topology(ctx)
}

// Shared returns the underlying go-redis cluster client for advanced
// operations that want the driver's own routing.
func (c *Client) Shared() *redis.ClusterClient {
	return c.shared
}

// WithObserver sets the observer for this client and returns the client
// for method chaining. The observer receives one event per executed
// cluster operation.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	c.executor.observer = observer
	return c
}

// WithLogger sets the logger for this client and returns the client for
// method chaining.
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	c.executor.logger = logger
	return c
}

// Close releases the per-node handles and the shared cluster connection.
// Safe to call more than once; only the first call closes anything.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.logger != nil {
			c.logger.Info("closing cluster client", nil)
		}
		err := c.resources.Close()
		if c.shared != nil {
			if cerr := c.shared.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		c.closeErr = err
	})
	return c.closeErr
}
