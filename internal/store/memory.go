package store

import (
	"sync"
)

const subscriberBuffer = 100

// MemoryLog is an in-memory implementation of [Log].
//
// MemoryLog keeps at most capacity entries ordered most-recent-first. Pushing
// into a full log evicts the oldest entry.
//
// Subscribers receive updates via buffered channels (buffer size 100). Updates
// are sent non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryLog[T any] struct {
	mu          sync.RWMutex
	entries     []T
	capacity    int
	subscribers map[chan T]struct{}
	subMu       sync.RWMutex
}

// NewMemoryLog creates a new in-memory [Log] holding at most capacity entries.
// A capacity of zero or less selects [DefaultCapacity].
func NewMemoryLog[T any](capacity int) *MemoryLog[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryLog[T]{
		entries:     make([]T, 0, capacity),
		capacity:    capacity,
		subscribers: make(map[chan T]struct{}),
	}
}

// Push inserts entry at the front of the log and notifies all subscribers.
func (m *MemoryLog[T]) Push(entry T) {
	m.mu.Lock()
	if len(m.entries) < m.capacity {
		var zero T
		m.entries = append(m.entries, zero)
	}
	// shift right by one, dropping the tail when full
	copy(m.entries[1:], m.entries[:len(m.entries)-1])
	m.entries[0] = entry
	m.mu.Unlock()

	m.notifySubscribers(entry)
}

// All returns a snapshot of the entries, most recent first.
func (m *MemoryLog[T]) All() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, len(m.entries))
	copy(out, m.entries)
	return out
}

// Latest returns the most recently pushed entry, if any.
func (m *MemoryLog[T]) Latest() (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		var zero T
		return zero, false
	}
	return m.entries[0], true
}

// Len returns the number of entries currently held.
func (m *MemoryLog[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Capacity returns the maximum number of entries kept.
func (m *MemoryLog[T]) Capacity() int {
	return m.capacity
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryLog.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryLog[T]) Subscribe() <-chan T {
	ch := make(chan T, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryLog[T]) Unsubscribe(ch <-chan T) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the entry to all active subscribers without blocking.
func (m *MemoryLog[T]) notifySubscribers(entry T) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- entry:
		default:
			// subscriber is slow, drop the message
		}
	}
}
