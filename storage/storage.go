package storage

// Storage is the shared keyspace. Every method is atomic with respect to
// every other call on the same key and never blocks on anything but the
// short critical section guarding that key.
//
// Keys are Go strings and may hold arbitrary bytes. Values passed to Set
// and returned by Get are copied, so callers never share memory with the
// store. There is no multi-key atomicity.
//
// Operations cannot fail: there are no capacity limits and no size caps
// on keys or values. A production deployment would need both.
type Storage interface {
	// Get returns a copy of the value stored at key
	Get(key string) ([]byte, bool)

	// Set inserts or overwrites key
	Set(key string, value []byte)

	// Del removes key and reports whether it was present
	Del(key string) bool

	// KeyCount returns the number of keys
	KeyCount() int64

	// Close releases resources held by the store
	Close() error
}
