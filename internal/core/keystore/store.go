// Package keystore is an in-process keyed store with per-entry expiry.
// Callers own the sweep schedule; nothing runs in the background.
package keystore

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     Clock
}

func New[V any](clock Clock) *Store[V] {
	if clock == nil {
		clock = time.Now
	}
	return &Store[V]{
		entries: make(map[string]entry[V]),
		now:     clock,
	}
}

func (s *Store[V]) Put(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(ttl)}
}

// Get returns the value for key when it exists and has not expired.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	var zero V
	if !ok || !s.now().Before(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store[V]) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
