// Package cache provides the normalized-key helper and a TTL response
// cache. Entries are evicted lazily on read; there is no sweeper and no
// capacity bound.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const DefaultTTL = 3600 * time.Second

// Key normalizes free-form text into a stable cache key: case-fold, trim,
// then hash so arbitrarily long questions become fixed-size keys.
func Key(text string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a process-local expiring key/value store.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the live value for key. A read past the entry's expiry
// evicts it and reports absent; repeating the read stays absent.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return e.value, true
}

// Put stores value under key with the cache's default TTL.
func (c *Cache) Put(key, value string) {
	c.PutTTL(key, value, c.defaultTTL)
}

// PutTTL stores value under key, expiring ttl from now.
func (c *Cache) PutTTL(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
