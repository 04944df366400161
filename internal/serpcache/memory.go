package serpcache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process backend over an expirable LRU. The LRU's
// own TTL acts as an upper bound; per-entry deadlines are enforced on
// read so callers can use shorter TTLs per engine.
type MemoryStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryStore builds a backend holding at most size entries. A
// non-positive size falls back to 4096.
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = 4096
	}
	if maxTTL <= 0 {
		maxTTL = DefaultTTL
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if m.now().After(entry.expires) {
		m.lru.Remove(key)
		return nil, nil
	}
	return entry.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(key, memoryEntry{value: value, expires: m.now().Add(ttl)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	return nil
}
