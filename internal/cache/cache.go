package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = time.Minute

// Cache is a process-scoped key/value store with per-entry expiry.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Purge()
	Len() int
}

type ttlCache[K comparable, V any] struct {
	store *gocache.Cache
	keyFn func(K) string
}

// NewTTLCache returns an in-memory cache backed by go-cache. Entries written
// with a zero ttl never expire.
func NewTTLCache[K ~string, V any]() Cache[K, V] {
	return &ttlCache[K, V]{
		store: gocache.New(gocache.NoExpiration, defaultCleanupInterval),
		keyFn: func(k K) string { return string(k) },
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	var zero V
	raw, ok := c.store.Get(c.keyFn(key))
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

func (c *ttlCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(c.keyFn(key), value, ttl)
}

func (c *ttlCache[K, V]) Delete(key K) {
	c.store.Delete(c.keyFn(key))
}

func (c *ttlCache[K, V]) Purge() {
	c.store.Flush()
}

func (c *ttlCache[K, V]) Len() int {
	return c.store.ItemCount()
}
