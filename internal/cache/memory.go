package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is the default in-process rendered-image store. Rendered
// PNGs are small relative to frame buffers, so a plain map with periodic
// expiry sweeping is enough.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	done chan struct{}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a memory cache and starts its expiry sweeper.
func NewMemoryCache() *MemoryCache {
	m := &MemoryCache{
		data: make(map[string]memoryEntry),
		done: make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Get returns the cached bytes for key, or ErrMiss.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrMiss
	}
	return e.value, nil
}

// Set stores value under key for ttl.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.data[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Exists reports whether key is present and unexpired.
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	return ok && !time.Now().After(e.expiresAt), nil
}

// Clear removes every key matching pattern. Only a trailing * wildcard
// is supported, which is all the render key scheme needs.
func (m *MemoryCache) Clear(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.data {
		if matchPattern(key, pattern) {
			delete(m.data, key)
		}
	}
	return nil
}

// Close stops the expiry sweeper.
func (m *MemoryCache) Close() error {
	close(m.done)
	return nil
}

func (m *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, e := range m.data {
				if now.After(e.expiresAt) {
					delete(m.data, key)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

func matchPattern(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, strings.TrimSuffix(pattern, "*"))
	}
	return s == pattern
}
