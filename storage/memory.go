package storage

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory [Store] using the same encoding and quota rules
// as [FileStore]. Its contents are lost when the process exits.
type MemoryStore struct {
	quota int64

	mu     sync.RWMutex
	values map[string]string
	used   int64
}

// NewMemoryStore creates an empty [MemoryStore]. A quota of zero or less
// selects [DefaultQuota].
func NewMemoryStore(quota int64) *MemoryStore {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &MemoryStore{
		quota:  quota,
		values: make(map[string]string),
	}
}

// Put stores value under key.
func (m *MemoryStore) Put(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	encoded, err := Encode(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old := int64(len(m.values[key]))
	size := int64(len(encoded))
	if m.used-old+size > m.quota {
		return fmt.Errorf("%w: %q needs %d bytes, %d of %d used", ErrQuotaExceeded, key, size, m.used, m.quota)
	}
	m.values[key] = encoded
	m.used += size - old
	return nil
}

// Get returns the decoded value for key, or nil if it is missing.
func (m *MemoryStore) Get(key string) (any, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return Decode(raw), nil
}

// Has reports whether key is present.
func (m *MemoryStore) Has(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

// Delete removes key.
func (m *MemoryStore) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= int64(len(m.values[key]))
	delete(m.values, key)
	return nil
}

// Keys returns all stored keys in lexical order.
func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
