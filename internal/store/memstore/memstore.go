// Package memstore is the transient in-memory workspace.
package memstore

import (
	"context"
	"path"
	"sort"
	"sync"

	"github.com/geostrata/categorize/internal/store"
)

type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *Store) Put(_ context.Context, name string, data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)
	s.mu.Lock()
	s.data[name] = b
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.data, name)
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[name]
	return ok, nil
}

func (s *Store) List(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for name := range s.data {
		ok, err := path.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Transient() bool { return true }

func (s *Store) Location() string { return "memory" }
