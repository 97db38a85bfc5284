package memkv

import (
	"log/slog"
	"time"

	"github.com/raniellyferreira/memkv/protocol"
	"github.com/raniellyferreira/memkv/server"
	"github.com/raniellyferreira/memkv/storage"
)

// config holds the configuration for a KV instance
type config struct {
	addr string

	// Timeouts and limits
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxDepth     int
	rateLimit    float64
	rateBurst    int

	// Storage
	shards int

	// Observability
	logger  *slog.Logger
	metrics MetricsCollector
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	def := server.DefaultConfig()
	return &config{
		addr:         def.Addr,
		readTimeout:  def.ReadTimeout,
		writeTimeout: def.WriteTimeout,
		maxDepth:     protocol.DefaultMaxDepth,
		shards:       storage.DefaultShardCount,
		logger:       slog.Default(),
	}
}

// Option represents a configuration option for a KV instance
type Option func(*config) error

// WithAddr sets the TCP listen address
//
// Example:
//
//	WithAddr("127.0.0.1:8080")
//	WithAddr(":0") // random port, see KV.Addr
func WithAddr(addr string) Option {
	return func(c *config) error {
		if addr == "" {
			return invalid("addr", "must not be empty")
		}
		c.addr = addr
		return nil
	}
}

// WithReadTimeout closes connections that stay silent for longer than
// timeout. Zero disables the deadline.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return invalid("read_timeout", "must not be negative")
		}
		c.readTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds every reply write. Zero disables the deadline.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return invalid("write_timeout", "must not be negative")
		}
		c.writeTimeout = timeout
		return nil
	}
}

// WithMaxDepth bounds array nesting in requests
func WithMaxDepth(depth int) Option {
	return func(c *config) error {
		if depth < 1 {
			return invalid("max_depth", "must be at least 1, got %d", depth)
		}
		c.maxDepth = depth
		return nil
	}
}

// WithShardCount sets the number of store shards, rounded up to a power of
// two. One shard means a single lock for the whole store.
//
// Example:
//
//	WithShardCount(256)
func WithShardCount(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return invalid("shards", "must be at least 1, got %d", n)
		}
		c.shards = n
		return nil
	}
}

// WithRateLimit limits each connection to perSecond commands with the given
// burst. A zero rate disables limiting.
//
// Example:
//
//	WithRateLimit(1000, 100)
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *config) error {
		if perSecond < 0 {
			return invalid("rate_limit", "must not be negative")
		}
		if burst < 0 {
			return invalid("rate_burst", "must not be negative")
		}
		c.rateLimit = perSecond
		c.rateBurst = burst
		return nil
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return invalid("logger", "must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics enables metrics collection with the provided collector
//
// Example:
//
//	prom, _ := metrics.NewPrometheus(nil)
//	WithMetrics(prom)
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}

func (c *config) serverConfig() server.Config {
	return server.Config{
		Addr:         c.addr,
		ReadTimeout:  c.readTimeout,
		WriteTimeout: c.writeTimeout,
		MaxDepth:     c.maxDepth,
		RateLimit:    c.rateLimit,
		RateBurst:    c.rateBurst,
	}
}
