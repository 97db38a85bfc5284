// Package storage provides the keyspace used by the memkv server.
//
// The Storage interface only exposes atomic single-key operations, so
// callers cannot bypass the locking discipline of the implementation.
//
// Basic usage:
//
//	store := storage.NewMemory()
//	store.Set("key", []byte("value"))
//	value, exists := store.Get("key")
//	removed := store.Del("key")
//
// MemoryStorage shards keys by xxhash over independently locked maps.
// Nothing is persisted; data lives until Close or process exit.
package storage
