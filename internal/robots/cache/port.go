package cache

// Cache defines the port for storing robots policy entries per origin.
// This interface follows the port-adapter pattern, allowing different
// cache implementations to be swapped without changing the policy logic.
//
// Values are stored and returned as-is; callers replace entries instead of
// mutating them.
type Cache[V any] interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (V, bool)

	// Put stores value under key, replacing any previous value.
	// A bounded implementation may evict another entry to make room.
	Put(key string, value V)

	// Remove deletes key if present. It is not reported as an eviction.
	Remove(key string)

	// Len returns the number of stored entries.
	Len() int
}

// EvictionFunc is told about entries dropped to respect a capacity bound.
type EvictionFunc[V any] func(key string, value V)
