package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/groupcache/lru"
)

const DefaultShards = 32

// MemoryCache is a sharded, size-bounded LRU. Each shard owns its own lock,
// so keys in different shards never contend. The capacity bound is applied
// per shard, so the total may be reached before every shard is full.
type MemoryCache[V any] struct {
	shards  []*lruShard[V]
	onEvict EvictionFunc[V]
}

type lruShard[V any] struct {
	mu      sync.Mutex
	entries *lru.Cache
	evicted []evictedEntry[V]
}

type evictedEntry[V any] struct {
	key   string
	value V
}

// NewMemoryCache creates a cache holding at most maxEntries values across
// shardCount shards. maxEntries <= 0 means unbounded. onEvict may be nil.
func NewMemoryCache[V any](maxEntries int, shardCount int, onEvict EvictionFunc[V]) *MemoryCache[V] {
	if shardCount < 1 {
		shardCount = DefaultShards
	}
	if maxEntries > 0 && shardCount > maxEntries {
		shardCount = maxEntries
	}

	perShard := 0
	if maxEntries > 0 {
		perShard = (maxEntries + shardCount - 1) / shardCount
	}

	c := &MemoryCache[V]{
		shards:  make([]*lruShard[V], shardCount),
		onEvict: onEvict,
	}
	for i := range c.shards {
		shard := &lruShard[V]{entries: lru.New(perShard)}
		shard.entries.OnEvicted = func(key lru.Key, value interface{}) {
			// runs under shard.mu
			shard.evicted = append(shard.evicted, evictedEntry[V]{key: key.(string), value: value.(V)})
		}
		c.shards[i] = shard
	}
	return c
}

func (c *MemoryCache[V]) shardFor(key string) *lruShard[V] {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Get marks key as recently used.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	value, ok := shard.entries.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	return value.(V), true
}

// Put stores value and reports any entries evicted to make room, after the
// shard lock is released.
func (c *MemoryCache[V]) Put(key string, value V) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	shard.entries.Add(key, value)
	evicted := shard.evicted
	shard.evicted = nil
	shard.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for _, e := range evicted {
		c.onEvict(e.key, e.value)
	}
}

func (c *MemoryCache[V]) Remove(key string) {
	shard := c.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.entries.Remove(key)
	shard.evicted = nil
}

func (c *MemoryCache[V]) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		total += shard.entries.Len()
		shard.mu.Unlock()
	}
	return total
}

// Clear removes all entries without reporting evictions.
func (c *MemoryCache[V]) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.entries.Clear()
		shard.evicted = nil
		shard.mu.Unlock()
	}
}

// ShardCount is primarily useful for tests and diagnostics.
func (c *MemoryCache[V]) ShardCount() int {
	return len(c.shards)
}

var _ Cache[int] = (*MemoryCache[int])(nil)
