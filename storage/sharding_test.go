package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shardSizes returns the number of keys held by each shard
func shardSizes(s *MemoryStorage) []int {
	sizes := make([]int, len(s.shards))
	for i := range s.shards {
		s.shards[i].mu.RLock()
		sizes[i] = len(s.shards[i].data)
		s.shards[i].mu.RUnlock()
	}
	return sizes
}

func TestShardedStorage_DisjointWriters(t *testing.T) {
	for _, shards := range []int{1, 4, 64} {
		t.Run(fmt.Sprintf("shards=%d", shards), func(t *testing.T) {
			s := NewMemory(WithShardCount(shards))
			defer s.Close()

			const writers, perWriter = 32, 100
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						s.Set(fmt.Sprintf("w%d:%d", w, i), []byte{byte(w), byte(i)})
					}
				}(w)
			}
			wg.Wait()

			require.Equal(t, int64(writers*perWriter), s.KeyCount())
			for w := 0; w < writers; w++ {
				v, ok := s.Get(fmt.Sprintf("w%d:%d", w, perWriter-1))
				require.True(t, ok)
				assert.Equal(t, []byte{byte(w), byte(perWriter - 1)}, v)
			}

			wg.Add(writers)
			for w := 0; w < writers; w++ {
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						assert.True(t, s.Del(fmt.Sprintf("w%d:%d", w, i)))
					}
				}(w)
			}
			wg.Wait()
			assert.Equal(t, int64(0), s.KeyCount())
		})
	}
}

// Racing SET/DEL on a shared keyspace must leave the counter equal to the
// number of keys actually stored.
func TestShardedStorage_KeyCountMatchesShards(t *testing.T) {
	s := NewMemory(WithShardCount(8))
	defer s.Close()

	const workers, keys = 16, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < keys; i++ {
				s.Set(fmt.Sprintf("k%d", i), []byte(fmt.Sprintf("v%d", w)))
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < keys; i += 2 {
				s.Del(fmt.Sprintf("k%d", i))
				s.Get(fmt.Sprintf("k%d", i+1))
			}
		}()
	}
	wg.Wait()

	var stored int
	for _, n := range shardSizes(s) {
		stored += n
	}
	assert.Equal(t, int64(stored), s.KeyCount())
}

func TestShardedStorage_Distribution(t *testing.T) {
	s := NewMemory(WithShardCount(16))
	defer s.Close()

	for i := 0; i < 1000; i++ {
		s.Set(fmt.Sprintf("key_%d", i), nil)
	}

	for i, n := range shardSizes(s) {
		assert.NotZero(t, n, "shard %d received no keys", i)
	}
}

func TestShardedStorage_SingleShard(t *testing.T) {
	s := NewMemory(WithShardCount(1))
	defer s.Close()

	assert.Equal(t, uint64(0), s.shardMask)
	s.Set("a", []byte("1"))
	s.Set("b", []byte("2"))
	assert.Equal(t, []int{2}, shardSizes(s))
}

func TestNextPowerOf2(t *testing.T) {
	tests := map[int]int{-1: 1, 0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 1000: 1024, 1024: 1024}
	for in, want := range tests {
		assert.Equal(t, want, nextPowerOf2(in), "nextPowerOf2(%d)", in)
	}
}
