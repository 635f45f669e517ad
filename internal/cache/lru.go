package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// LRU is an in-process Cache backed by a bounded hashicorp/golang-lru
// cache, suitable for single-process hosts and tests that don't want a
// Redis dependency. Entries past their absolute expiration are treated
// as absent and evicted lazily on access.
type LRU struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
}

// NewLRU returns an LRU-backed Cache holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{cache: c}, nil
}

// Get implements Cache.
func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		l.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (l *LRU) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	l.cache.Add(key, entry{value: cp, expiresAt: expiresAt})
	return nil
}

// Remove implements Cache.
func (l *LRU) Remove(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Remove(key)
	return nil
}
