// Package cache provides the injected get/put/TTL cache abstraction.
// Components never share a module-level cache singleton; every consumer
// receives an interfaces.Cache explicitly.
package cache

import (
	"context"
	"sync"
	"time"

	"bandit-trading-engine/internal/interfaces"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process TTL cache used in DRY_RUN and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ interfaces.Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: append([]byte(nil), value...), expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len reports live entries, expiring lazily.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	return len(m.entries)
}
