package storage

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultShardCount is the number of shards used by NewMemory
const DefaultShardCount = 64

// shard represents a single shard of data with its own lock
type shard struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// MemoryStorage implements an in-memory storage engine. Keys are spread
// over a power-of-two number of shards, each guarded by its own RWMutex, so
// operations on different shards never contend.
type MemoryStorage struct {
	shards    []shard
	shardMask uint64

	keyCount atomic.Int64
	closed   atomic.Bool
}

// MemoryOption is a function that configures a MemoryStorage instance
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	shards int
}

// WithShardCount sets the number of shards for the storage.
// The number is automatically rounded up to the next power of 2 for optimal
// performance. A single shard gives one lock over the whole keyspace.
func WithShardCount(count int) MemoryOption {
	return func(c *memoryConfig) {
		if count > 0 {
			c.shards = nextPowerOf2(count)
		}
	}
}

// NewMemory creates a new in-memory storage instance with default number of shards (64)
func NewMemory(opts ...MemoryOption) *MemoryStorage {
	cfg := memoryConfig{shards: DefaultShardCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &MemoryStorage{
		shards:    make([]shard, cfg.shards),
		shardMask: uint64(cfg.shards - 1),
	}
	for i := range s.shards {
		s.shards[i].data = make(map[string][]byte)
	}
	return s
}

// nextPowerOf2 returns the next power of 2 >= n
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ShardCount returns the number of shards
func (s *MemoryStorage) ShardCount() int {
	return len(s.shards)
}

// shardFor computes the hash for a key and returns its shard
func (s *MemoryStorage) shardFor(key string) *shard {
	return &s.shards[xxhash.Sum64String(key)&s.shardMask]
}

// Get retrieves a value by key
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	value, exists := sh.data[key]
	if !exists {
		sh.mu.RUnlock()
		return nil, false
	}
	// Copy the data while holding the read lock
	result := make([]byte, len(value))
	copy(result, value)
	sh.mu.RUnlock()

	return result, true
}

// Set stores a value, replacing any previous one
func (s *MemoryStorage) Set(key string, value []byte) {
	// Copy outside the lock; the stored slice is never mutated afterwards.
	stored := append(make([]byte, 0, len(value)), value...)
	sh := s.shardFor(key)

	sh.mu.Lock()
	if _, existed := sh.data[key]; !existed {
		s.keyCount.Add(1)
	}
	sh.data[key] = stored
	sh.mu.Unlock()
}

// Del deletes a key
func (s *MemoryStorage) Del(key string) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	_, exists := sh.data[key]
	if exists {
		delete(sh.data, key)
		s.keyCount.Add(-1)
	}
	sh.mu.Unlock()

	return exists
}

// KeyCount returns the number of keys
func (s *MemoryStorage) KeyCount() int64 {
	return s.keyCount.Load()
}

// MemoryUsage estimates the bytes held by keys and values
func (s *MemoryStorage) MemoryUsage() int64 {
	var total int64
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for k, v := range sh.data {
			total += int64(len(k) + len(v))
		}
		sh.mu.RUnlock()
	}
	return total
}

// Close shuts down the storage. The data is dropped; nothing is persisted.
func (s *MemoryStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		s.keyCount.Add(-int64(len(sh.data)))
		sh.data = make(map[string][]byte)
		sh.mu.Unlock()
	}
	return nil
}
