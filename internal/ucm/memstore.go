package ucm

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using a map. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu     sync.RWMutex
	slots  map[string][]byte
	writes map[string]int
}

// NewMemStore returns an empty MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		slots:  make(map[string][]byte),
		writes: make(map[string]int),
	}
}

// Read returns a copy of the slot content.
func (m *MemStore) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[name]
	if !ok {
		return nil, &StorageError{Op: "read", Slot: name, Err: ErrNotFound}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores a copy of data.
func (m *MemStore) Write(_ context.Context, name string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[name] = cp
	m.writes[name]++
	return nil
}

// Writes returns how many times a slot has been written.
func (m *MemStore) Writes(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes[name]
}

// Close is a no-op.
func (m *MemStore) Close() error { return nil }
