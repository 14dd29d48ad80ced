// Package noncecache implements the advisory nonce hint cache spec
// §3 calls the "Nonce Cache Entry": a key-value mapping from address
// to "next nonce the gateway intends to assign".
//
// It is adapted from the teacher's generic LRU cache, but eviction is
// TTL-only rather than capacity-LRU: an address that has been quiet
// for longer than the TTL loses its hint the next time it is read,
// but a *busy* address must never lose its hint just because other
// addresses were busier in the meantime — capacity eviction would
// violate that, so there is no capacity limit here. Expired entries
// are removed only by a Get of that key; there is no background
// sweep, so an entry that is never read again stays in the map.
package noncecache

import (
	"sync"
	"time"
)

type entry struct {
	nonce    uint64
	expireAt time.Time
}

// Cache is a concurrency-safe map[address]nonce with a sliding TTL:
// every Get or Set of a key refreshes its expiry.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]entry

	now func() time.Time
}

// New builds a Cache. ttl <= 0 disables expiration entirely.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

// Get returns the cached nonce for key, and whether it was present
// and unexpired. A present Get refreshes the entry's TTL.
func (c *Cache) Get(key string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[key]
	if !ok {
		return 0, false
	}
	now := c.now()
	if c.ttl > 0 && now.After(e.expireAt) {
		delete(c.m, key)
		return 0, false
	}
	if c.ttl > 0 {
		e.expireAt = now.Add(c.ttl)
		c.m[key] = e
	}
	return e.nonce, true
}

// Set stores nonce for key, refreshing its TTL.
func (c *Cache) Set(key string, nonce uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expireAt time.Time
	if c.ttl > 0 {
		expireAt = c.now().Add(c.ttl)
	}
	c.m[key] = entry{nonce: nonce, expireAt: expireAt}
}

// Len reports the number of entries currently stored, including any
// that are expired but not yet swept by a Get.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
