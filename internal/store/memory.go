package store

import "sync"

// Memory is a thread-safe in-memory implementation of Store.
type Memory[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

var _ Store[struct{}] = (*Memory[struct{}])(nil)

// NewMemory creates an empty in-memory store.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{
		entries: make(map[string]V),
	}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	return value, ok
}

func (m *Memory[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
}

func (m *Memory[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok
}

func (m *Memory[V]) Take(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	return value, ok
}

func (m *Memory[V]) Range(fn func(key string, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.entries {
		if !fn(k, v) {
			return
		}
	}
}

func (m *Memory[V]) DeleteFunc(fn func(key string, value V) bool) map[string]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]V)
	for k, v := range m.entries {
		if fn(k, v) {
			removed[k] = v
			delete(m.entries, k)
		}
	}
	return removed
}

func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
