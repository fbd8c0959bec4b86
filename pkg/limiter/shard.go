package limiter

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 32

// shardedMap spreads origin keys over independently locked maps so that
// unrelated origins rarely contend.
type shardedMap[V any] struct {
	shards []*mapShard[V]
}

type mapShard[V any] struct {
	mu      sync.Mutex
	records map[string]V
}

func newShardedMap[V any](n int) *shardedMap[V] {
	if n < 1 {
		n = defaultShards
	}
	shards := make([]*mapShard[V], n)
	for i := range shards {
		shards[i] = &mapShard[V]{records: make(map[string]V)}
	}
	return &shardedMap[V]{shards: shards}
}

func (s *shardedMap[V]) shardFor(key string) *mapShard[V] {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

// len takes each shard lock in turn; the total is not a point-in-time snapshot.
func (s *shardedMap[V]) len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.records)
		shard.mu.Unlock()
	}
	return total
}

// deleteIf removes every record for which stale returns true and reports
// how many were removed.
func (s *shardedMap[V]) deleteIf(stale func(V) bool) int {
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for key, record := range shard.records {
			if stale(record) {
				delete(shard.records, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}
