// Package memory is an in-process implementation of session storage.
package memory

import (
	"context"
	"sync"

	"github.com/Decentr-net/iris/internal/session"
)

type storage struct {
	mu sync.RWMutex
	m  map[string]string
}

// New returns storage which lives as long as the process.
func New() session.Storage {
	return &storage{
		m: map[string]string{},
	}
}

func (s *storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	if !ok {
		return "", session.ErrNotFound
	}

	return v, nil
}

func (s *storage) Set(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.m[k] = v
	}

	return nil
}

func (s *storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.m, k)
	}

	return nil
}

func (s *storage) Ping(context.Context) error {
	return nil
}

func (s *storage) Close() error {
	return nil
}
