// Package storage provides the key-value capability used to persist calculator history and
// converter preferences. Keys live inside a named profile, so several sessions can share one
// backend without seeing each other's data.
package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("key not found")

// Store reads and writes string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend hands out per-profile stores.
type Backend interface {
	Profile(name string) Store
	Close() error
}

// Open returns the SQLite backend at path, or an in-memory backend when path is empty.
func Open(path string) (Backend, error) {
	if path == "" {
		return NewMemory(), nil
	}
	return OpenSQLite(path)
}

// Memory is a process-local backend.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]map[string]string)}
}

func (m *Memory) Profile(name string) Store {
	return &memoryStore{mem: m, profile: name}
}

func (m *Memory) Close() error {
	return nil
}

type memoryStore struct {
	mem     *Memory
	profile string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	v, ok := s.mem.profiles[s.profile][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	kv, ok := s.mem.profiles[s.profile]
	if !ok {
		kv = make(map[string]string)
		s.mem.profiles[s.profile] = kv
	}
	kv[key] = value
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	delete(s.mem.profiles[s.profile], key)
	return nil
}
