package cluster

import (
	"context"

	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides and configures the cluster client.
// It registers the client with the Fx dependency injection framework,
// making it available to other components in the application.
//
// Usage:
//
//	app := fx.New(
//	    cluster.FXModule,
//	    fx.Provide(func() cluster.Config {
//	        return cluster.Config{Addrs: []string{"localhost:7000"}}
//	    }),
//	)
var FXModule = fx.Module("cluster",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterClusterLifecycle),
)

// ClusterParams groups the dependencies needed to create a cluster client
type ClusterParams struct {
	fx.In

	Config Config
	Logger Logger `optional:"true"` // Optional logger from v1/logger
}

// NewClientWithDI creates a new cluster client using dependency injection.
// When a Logger is available in the container it is injected into the
// configuration before delegating to NewClient.
func NewClientWithDI(params ClusterParams) (*Client, error) {
	if params.Logger != nil {
		params.Config.Logger = params.Logger
	}
	return NewClient(params.Config)
}

// ClusterLifecycleParams groups the dependencies for lifecycle management
type ClusterLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *Client
}

// RegisterClusterLifecycle registers the cluster client with the fx
// lifecycle system.
//
// On application start the client pings every master to verify the
// cluster is reachable; on stop it closes the per-node handles and the
// shared connection.
func RegisterClusterLifecycle(params ClusterLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return params.Client.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return params.Client.Close()
		},
	})
}
