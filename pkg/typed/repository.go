// Package typed provides type-safe access to DocumentStore collections.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/tabnotes/pkg/core"
)

// DocumentModel is a typed view of a core.Document.
type DocumentModel[T any] struct {
	ID   string
	Data T
}

// Collection wraps one collection of a core.DocumentStore.
type Collection[T any] struct {
	store core.DocumentStore
	name  string
}

// NewCollection creates a type-safe wrapper around a store collection.
func NewCollection[T any](store core.DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Query returns every document whose field equals value.
func (c *Collection[T]) Query(ctx context.Context, field string, value any) ([]*DocumentModel[T], error) {
	docs, err := c.store.Query(ctx, c.name, field, value)
	if err != nil {
		return nil, err
	}

	result := make([]*DocumentModel[T], 0, len(docs))
	for _, d := range docs {
		model, err := fromCore[T](d)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s/%s: %w", c.name, d.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}

// Get retrieves a document by key.
func (c *Collection[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	return fromCore[T](doc)
}

// Create stores data as a new document and returns the assigned id.
func (c *Collection[T]) Create(ctx context.Context, data T) (string, error) {
	fields, err := ToFields(data)
	if err != nil {
		return "", err
	}
	return c.store.Create(ctx, c.name, fields)
}

// Update overwrites the fields present in patch (a struct or a map).
func (c *Collection[T]) Update(ctx context.Context, id string, patch any) error {
	fields, err := ToFields(patch)
	if err != nil {
		return err
	}
	return c.store.Update(ctx, c.name, id, fields)
}

// Upsert merges data into the document, creating it if needed.
func (c *Collection[T]) Upsert(ctx context.Context, id string, data T) error {
	fields, err := ToFields(data)
	if err != nil {
		return err
	}
	return c.store.Upsert(ctx, c.name, id, fields)
}

// Delete removes a document by key.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// ToFields converts a struct or map into document fields through JSON.
func ToFields(v any) (core.Fields, error) {
	if f, ok := v.(core.Fields); ok {
		return f, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var fields core.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to fields: %w", err)
	}
	return fields, nil
}

func fromCore[T any](doc core.Document) (*DocumentModel[T], error) {
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("fields marshal failed: %w", err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal to target type failed: %w", err)
	}

	return &DocumentModel[T]{ID: doc.ID, Data: v}, nil
}
