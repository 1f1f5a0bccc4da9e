package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a bounded in-process cache. When the entry cap is reached the
// entry closest to expiry is evicted. Mutex-guarded; safe for concurrent
// use from multiple engines.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	nowFunc    func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates a Memory cache capped at maxEntries (default 100).
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		nowFunc:    time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (m *Memory) WithNow(now func() time.Time) *Memory {
	m.nowFunc = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.nowFunc().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictSoonestLocked()
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: m.nowFunc().Add(ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictSoonestLocked removes the entry closest to expiry. Caller holds mu.
func (m *Memory) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	first := true
	for k, e := range m.entries {
		if first || e.expiresAt.Before(soonest) {
			victim = k
			soonest = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(m.entries, victim)
	}
}
