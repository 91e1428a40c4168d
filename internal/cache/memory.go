package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache bounded by a key count.
type Memory struct {
	cache   *gocache.Cache
	maxKeys int
}

// NewMemory creates an in-process cache. maxKeys <= 0 means unbounded.
func NewMemory(defaultTTL time.Duration, maxKeys int) *Memory {
	cleanup := defaultTTL
	if cleanup <= 0 || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Memory{
		cache:   gocache.New(defaultTTL, cleanup),
		maxKeys: maxKeys,
	}
}

// Get returns a cached value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

// Set stores value. When the cache is full, expired entries are purged and
// the write is dropped if there is still no room.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.maxKeys > 0 && m.cache.ItemCount() >= m.maxKeys {
		if _, exists := m.cache.Get(key); !exists {
			m.cache.DeleteExpired()
			if m.cache.ItemCount() >= m.maxKeys {
				return nil
			}
		}
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

// Close flushes the cache.
func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
