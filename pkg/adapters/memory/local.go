package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tabnotes/pkg/core"
)

// LocalStore implements core.LocalStore in memory.
type LocalStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewLocalStore creates an empty store.
func NewLocalStore() *LocalStore {
	return &LocalStore{data: make(map[string][]byte)}
}

var _ core.LocalStore = (*LocalStore)(nil)

// Get implements core.LocalStore.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set implements core.LocalStore.
func (s *LocalStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return core.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}
