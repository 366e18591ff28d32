// Package memstore is an in-memory storage.Backend. One instance shared by
// several facades behaves like origin-shared storage seen from several tabs.
package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-tab-session/storage"
)

var _ storage.Backend = (*Store)(nil)

type Store struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Store {
	return &Store{
		values: make(map[string]string),
	}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.values, key)
	return nil
}

// Keys returns a snapshot of the stored keys.
func (s *Store) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

// Clear drops every value, as closing a tab drops its tab-local storage.
func (s *Store) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values = make(map[string]string)
}
