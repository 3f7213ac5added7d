// Package threadsafe implements data structures that are safe for use
// from multiple goroutines. The fid table and session maps in this
// repository are read far more often than they are written, so each
// is backed by a sync.RWMutex rather than a channel:
// readers never block other readers, and writes are rare (fid/session
// creation and teardown).
package threadsafe

import "sync"

// A Map is a generic map safe for concurrent access and updates. The
// zero value is not usable; create one with NewMap.
type Map[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
}

// NewMap returns a new, empty Map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

// Get retrieves the value stored under key. ok is false if no value is
// stored under key.
func (m *Map[K, V]) Get(key K) (val V, ok bool) {
	m.mu.RLock()
	val, ok = m.values[key]
	m.mu.RUnlock()
	return val, ok
}

// Put stores val under key, overwriting any previous value.
func (m *Map[K, V]) Put(key K, val V) {
	m.mu.Lock()
	m.values[key] = val
	m.mu.Unlock()
}

// Add stores val under key only if key is not already present. It
// reports whether the value was stored.
func (m *Map[K, V]) Add(key K, val V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false
	}
	m.values[key] = val
	return true
}

// Del removes key from the Map. Subsequent Gets for key return the
// zero value and ok == false.
func (m *Map[K, V]) Del(key K) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
}

// Update calls fn with the current value stored under key and stores
// fn's return value back under key, all while holding the write lock.
// It reports whether key was present. It suits read-modify-write
// cycles that must be atomic with respect to other table operations.
func (m *Map[K, V]) Update(key K, fn func(V) V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	if !ok {
		return false
	}
	m.values[key] = fn(val)
	return true
}

// Len returns the number of entries currently in the Map.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Keys returns a snapshot of the keys currently in the Map.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]K, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes every entry from the Map, returning the values that
// were present so the caller can release any resources they hold.
// Used on Tversion, which resets a connection's fid table.
func (m *Map[K, V]) Clear() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals := make([]V, 0, len(m.values))
	for _, v := range m.values {
		vals = append(vals, v)
	}
	m.values = make(map[K]V)
	return vals
}
