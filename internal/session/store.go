// Package session provides the per-user in-memory state stores.
package session

import "sync"

// Store is a concurrency-safe keyed store. Sessions are keyed per user, so
// last-write-wins under near-simultaneous updates from the same user is
// acceptable for this interactive, human-paced flow.
type Store[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewStore returns an empty store.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{m: make(map[K]V)}
}

// Get returns the value for key and whether it was present.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Update applies fn to the current value for key (zero value when absent)
// and stores the result.
func (s *Store[K, V]) Update(key K, fn func(V) V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = fn(s.m[key])
}

// Delete removes key.
func (s *Store[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// Len returns the number of stored entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Flag is a set of user ids used for modal await states (feedback prompt,
// broadcast prompt).
type Flag[K comparable] struct {
	inner *Store[K, struct{}]
}

// NewFlag returns an empty flag set.
func NewFlag[K comparable]() *Flag[K] {
	return &Flag[K]{inner: NewStore[K, struct{}]()}
}

// Arm marks key.
func (f *Flag[K]) Arm(key K) { f.inner.Set(key, struct{}{}) }

// Disarm clears key.
func (f *Flag[K]) Disarm(key K) { f.inner.Delete(key) }

// Armed reports whether key is marked.
func (f *Flag[K]) Armed(key K) bool {
	_, ok := f.inner.Get(key)
	return ok
}
