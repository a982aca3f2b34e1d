package core

import "context"

// Fields are the flexible key-value pairs stored in a remote document.
type Fields map[string]any

// Document is a single record of a DocumentStore collection.
type Document struct {
	ID     string
	Fields Fields
}

// DocumentStore defines the contract for the remote document database.
// Adhering to this interface keeps the core independent of the underlying
// storage mechanism (Redis, SQLite, PostgreSQL, in-memory).
type DocumentStore interface {
	// Initialize ensures the underlying storage is ready (e.g. schema creation).
	Initialize(ctx context.Context) error

	// Query returns the documents of a collection whose field equals value.
	// Result order is store-dependent.
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)

	// Get retrieves a document by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create stores a new document and returns the identifier the store assigned.
	Create(ctx context.Context, collection string, fields Fields) (string, error)

	// Update overwrites the given fields of an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, fields Fields) error

	// Upsert creates the document if absent or merges fields into it.
	Upsert(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a document by key. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// LocalStore is the durable key-value storage of an anonymous session.
type LocalStore interface {
	// Get returns the raw JSON stored under key, or nil if there is none.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores raw JSON under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Watchable is implemented by stores that can report external changes.
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}
