package memo

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Cache is a content-addressed get-or-compute store. Keys are the canonical
// JSON encoding of the call arguments. Entries are never evicted; callers keep
// the key space small.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]V

	// OnHit and OnMiss, when set, observe lookups.
	OnHit  func()
	OnMiss func()
}

func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Key serializes args into a canonical cache key.
func Key(args ...any) (string, error) {
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("memo key: %w", err)
	}
	return string(b), nil
}

// GetOrCompute returns the value stored under key, computing and storing it
// first if absent. compute runs under the cache lock, so concurrent callers
// with the same key compute once.
func (c *Cache[V]) GetOrCompute(key string, compute func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		if c.OnHit != nil {
			c.OnHit()
		}
		return v
	}
	if c.OnMiss != nil {
		c.OnMiss()
	}
	v := compute()
	c.entries[key] = v
	return v
}

// Len reports the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
