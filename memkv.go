package memkv

import (
	"context"
	"sync"
	"time"

	"github.com/raniellyferreira/memkv/server"
	"github.com/raniellyferreira/memkv/storage"
)

// closeTimeout bounds how long Close waits for connections to drain
const closeTimeout = 10 * time.Second

// KV is an in-memory key-value store served over RESP
type KV struct {
	config *config

	// Components
	storage *storage.MemoryStorage
	server  *server.Server

	// State
	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a KV instance with the given options
//
// The instance is created but not listening. Use Start() to accept
// connections.
//
// Example:
//
//	kv, err := memkv.New(
//		memkv.WithAddr("127.0.0.1:8080"),
//		memkv.WithShardCount(128),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer kv.Close()
func New(opts ...Option) (*KV, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	stor := storage.NewMemory(storage.WithShardCount(cfg.shards))
	srv := server.New(cfg.serverConfig(), stor, cfg.logger, cfg.metrics)

	return &KV{
		config:  cfg,
		storage: stor,
		server:  srv,
	}, nil
}

// Start begins accepting connections in the background. The listener is
// bound when Start returns, so Addr reports the actual port.
func (kv *KV) Start(ctx context.Context) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.closed {
		return ErrClosed
	}
	if kv.started {
		return ErrAlreadyStarted
	}

	if err := kv.server.Start(ctx); err != nil {
		kv.config.logger.Error("failed to start server", "error", err, "addr", kv.config.addr)
		return err
	}
	kv.started = true
	return nil
}

// Close stops the server, closes every connection and drops the data
func (kv *KV) Close() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.closed {
		return nil
	}
	kv.closed = true

	var firstErr error
	if kv.started {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := kv.server.Shutdown(ctx); err != nil {
			kv.config.logger.Error("error stopping server", "error", err)
			firstErr = err
		}
	}

	if err := kv.storage.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Addr returns the listening address once started
func (kv *KV) Addr() string {
	return kv.server.Addr()
}

// Storage returns the underlying storage for direct access
//
// Example:
//
//	value, exists := kv.Storage().Get("mykey")
func (kv *KV) Storage() storage.Storage {
	return kv.storage
}

// Stats returns connection, command and data statistics
func (kv *KV) Stats() Stats {
	s := kv.server.Stats()
	return Stats{
		ConnectedClients: s.ConnectedClients,
		TotalConnections: s.TotalConnections,
		TotalCommands:    s.TotalCommands,
		TotalErrors:      s.TotalErrors,
		KeyCount:         kv.storage.KeyCount(),
		MemoryUsage:      kv.storage.MemoryUsage(),
	}
}

// Info returns statistics and version information as a map
func (kv *KV) Info() map[string]interface{} {
	s := kv.Stats()
	return map[string]interface{}{
		"connected_clients": s.ConnectedClients,
		"total_connections": s.TotalConnections,
		"total_commands":    s.TotalCommands,
		"total_errors":      s.TotalErrors,
		"keys":              s.KeyCount,
		"memory_usage":      s.MemoryUsage,
		"shards":            kv.storage.ShardCount(),
		"version":           VersionInfo(),
	}
}
