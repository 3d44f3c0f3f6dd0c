// Package memory contains in-memory ttl storage for cached responses.
package memory

import (
	"sync"
	"time"
)

type item struct {
	content   []byte
	expiresAt time.Time
}

// Storage ...
type Storage struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewStorage ...
func NewStorage() *Storage {
	return &Storage{
		items: map[string]item{},
		now:   time.Now,
	}
}

// Get returns content by key or nil if it is absent or expired.
func (s *Storage) Get(key string) []byte {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	if !s.now().Before(v.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && !s.now().Before(cur.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()

		return nil
	}

	return v.content
}

// Set puts content for duration.
func (s *Storage) Set(key string, content []byte, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = item{
		content:   content,
		expiresAt: s.now().Add(duration),
	}
}

// Purge drops everything.
func (s *Storage) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = map[string]item{}
}
