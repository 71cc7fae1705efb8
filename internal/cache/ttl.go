// Package cache holds the console's in-memory and persistent caches.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/damacus/delta-commander/internal/deltaglider"
)

// TTL is a thread-safe TTL+LRU cache with hit/miss accounting.
type TTL[K comparable, V any] struct {
	lru    *expirable.LRU[K, V]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewTTL[K comparable, V any](size int, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

func (c *TTL[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

func (c *TTL[K, V]) Keys() []K {
	return c.lru.Keys()
}

func (c *TTL[K, V]) Len() int {
	return c.lru.Len()
}

func (c *TTL[K, V]) Purge() {
	c.lru.Purge()
}

// Stats reports best-effort counters for observability.
func (c *TTL[K, V]) Stats() (hits, misses int64, entries int) {
	return c.hits.Load(), c.misses.Load(), c.lru.Len()
}

// CredentialsFingerprint derives a short stable key from a credential set so
// cache entries are isolated per account. The secret key is deliberately not
// part of the input.
func CredentialsFingerprint(creds deltaglider.Credentials) string {
	if creds == (deltaglider.Credentials{}) {
		return "no-credentials"
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{creds.Endpoint, creds.AccessKey, creds.Region}, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
