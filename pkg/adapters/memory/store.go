// Package memory provides in-memory implementations of the store contracts.
// They are used for tests and for sessions that should not touch disk.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/tabnotes/pkg/core"
)

type collection struct {
	docs  map[string]core.Fields
	order []string
}

// DocumentStore implements core.DocumentStore in memory.
// Fields go through a JSON round-trip on every write and read, so callers
// observe the same value shapes a networked store would return.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{collections: make(map[string]*collection)}
}

var _ core.DocumentStore = (*DocumentStore)(nil)

// Initialize implements core.DocumentStore.
func (s *DocumentStore) Initialize(ctx context.Context) error { return nil }

func (s *DocumentStore) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]core.Fields)}
		s.collections[name] = c
	}
	return c
}

// Query returns matching documents in creation order.
func (s *DocumentStore) Query(ctx context.Context, name, field string, value any) ([]core.Document, error) {
	want, err := normalize(value)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	var out []core.Document
	for _, id := range c.order {
		fields := c.docs[id]
		got, ok := fields[field]
		if !ok || !equal(got, want) {
			continue
		}
		cp, err := copyFields(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, core.Document{ID: id, Fields: cp})
	}
	return out, nil
}

// Get implements core.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, name, id string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	fields, ok := c.docs[id]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	cp, err := copyFields(fields)
	if err != nil {
		return core.Document{}, err
	}
	return core.Document{ID: id, Fields: cp}, nil
}

// Create implements core.DocumentStore.
func (s *DocumentStore) Create(ctx context.Context, name string, fields core.Fields) (string, error) {
	cp, err := copyFields(fields)
	if err != nil {
		return "", err
	}
	id := NewID()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(name)
	c.docs[id] = cp
	c.order = append(c.order, id)
	return id, nil
}

// Update implements core.DocumentStore.
func (s *DocumentStore) Update(ctx context.Context, name, id string, fields core.Fields) error {
	cp, err := copyFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(name)
	existing, ok := c.docs[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", name, id, core.ErrNotFound)
	}
	for k, v := range cp {
		existing[k] = v
	}
	return nil
}

// Upsert implements core.DocumentStore.
func (s *DocumentStore) Upsert(ctx context.Context, name, id string, fields core.Fields) error {
	cp, err := copyFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(name)
	existing, ok := c.docs[id]
	if !ok {
		c.docs[id] = cp
		c.order = append(c.order, id)
		return nil
	}
	for k, v := range cp {
		existing[k] = v
	}
	return nil
}

// Delete implements core.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of documents in a collection.
func (s *DocumentStore) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.docs)
	}
	return 0
}

// NewID returns a store-style document identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func copyFields(fields core.Fields) (core.Fields, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	out := core.Fields{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return out, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func equal(a, b any) bool {
	switch av := a.(type) {
	case string, float64, bool, nil:
		return av == b
	default:
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return string(ja) == string(jb)
	}
}
