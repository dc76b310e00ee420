package durable

import (
	"strings"
	"sync"
)

// Memory is a map-backed Storage. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory returns a Memory pre-populated with seed (may be nil).
func NewMemory(seed map[string]string) *Memory {
	m := &Memory{entries: make(map[string]string, len(seed))}
	for k, v := range seed {
		m.entries[k] = v
	}
	return m
}

// Get implements Storage.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Set implements Storage.
func (m *Memory) Set(key, value string) error {
	if value == "" {
		return m.Remove(key)
	}
	if err := checkEntry(key, value); err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
	return nil
}

// Remove implements Storage. Removing a missing key is not an error.
func (m *Memory) Remove(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
