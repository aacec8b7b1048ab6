package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telecom_cache_hits_total",
		Help: "Cache lookups served from memory.",
	}, []string{"cache"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telecom_cache_misses_total",
		Help: "Cache lookups that fell through to the database.",
	}, []string{"cache"})
)

// Cache is a bounded in-memory cache with a per-cache TTL. Safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Remove(key K)
	Purge()
}

type lruCache[K comparable, V any] struct {
	name  string
	inner *expirable.LRU[K, V]
}

// NewLRU returns a named expirable LRU. The name labels the hit/miss counters.
func NewLRU[K comparable, V any](name string, size int, ttl time.Duration) Cache[K, V] {
	if size <= 0 {
		size = 128
	}
	return &lruCache[K, V]{
		name:  name,
		inner: expirable.NewLRU[K, V](size, nil, ttl),
	}
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	value, ok := c.inner.Get(key)
	if ok {
		cacheHits.WithLabelValues(c.name).Inc()
	} else {
		cacheMisses.WithLabelValues(c.name).Inc()
	}
	return value, ok
}

func (c *lruCache[K, V]) Set(key K, value V) {
	c.inner.Add(key, value)
}

func (c *lruCache[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

func (c *lruCache[K, V]) Purge() {
	c.inner.Purge()
}
