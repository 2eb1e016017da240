package cluster

import "time"

// Config defines the configuration for the cluster client and its command
// execution engine.
type Config struct {
	// Addrs is a seed list of cluster node addresses.
	// Example: []string{"localhost:7000", "localhost:7001", "localhost:7002"}
	Addrs []string

	// Username is the Redis username for ACL authentication (Redis 6.0+)
	Username string

	// Password is the Redis password for authentication
	Password string

	// MaxRedirects is the maximum number of MOVED/ASK redirects the shared
	// cluster client follows before giving up
	// Default: 3
	MaxRedirects int

	// PoolSize is the maximum number of socket connections per node
	// Default: 10 per CPU (set by the redis client)
	PoolSize int

	// MinIdleConns is the minimum number of idle connections per node
	MinIdleConns int

	// DialTimeout is the timeout for establishing new connections
	// Default: 5 seconds
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads
	// Default: 3 seconds
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes
	// Default: ReadTimeout (set by the redis client)
	WriteTimeout time.Duration

	// MaxWorkers bounds the number of concurrent per-node invocations
	// during multi-node dispatch. Zero means one worker per target node.
	MaxWorkers int

	// TopologyCacheTTL, when positive, caches topology snapshots for the
	// given duration instead of querying CLUSTER NODES on every routing
	// decision. Zero disables caching.
	TopologyCacheTTL time.Duration

	// TLS contains TLS/SSL configuration
	TLS TLSConfig

	// Logger is an optional logger; *logger.Logger from v1/logger satisfies it
	Logger Logger
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	// Enabled determines whether to use TLS/SSL for connections
	Enabled bool

	// CACertPath is the file path to the CA certificate for verifying the server
	CACertPath string

	// ClientCertPath is the file path to the client certificate
	ClientCertPath string

	// ClientKeyPath is the file path to the client certificate's private key
	ClientKeyPath string

	// InsecureSkipVerify controls whether to skip verification of the server's certificate
	// WARNING: Setting this to true is insecure and should only be used in testing
	InsecureSkipVerify bool

	// ServerName is used to verify the hostname on the returned certificates
	ServerName string
}

// Logger is an interface that matches v1/logger.Logger
type Logger interface {
	Error(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
}

// Default values for configuration
const (
	DefaultMaxRedirects = 3
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
)
