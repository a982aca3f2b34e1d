// Package sqlite implements core.DocumentStore over an embedded SQLite
// database, using the ncruces/go-sqlite3 database/sql driver.
//
// All collections share one table. Document fields are stored as JSON text
// and queried with SQLite's JSON functions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/aretw0/tabnotes/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    fields TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_user
    ON documents(collection, json_extract(fields, '$.userId'));
`

// DocumentStore is the SQLite-backed document store.
type DocumentStore struct {
	mu  sync.Mutex
	db  *sql.DB
	dsn string
}

var _ core.DocumentStore = (*DocumentStore)(nil)
var _ introspection.Component = (*DocumentStore)(nil)

// NewDocumentStore opens the database at path, or an in-memory database
// for ":memory:". The schema is created by Initialize.
func NewDocumentStore(path string) (*DocumentStore, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	return &DocumentStore{db: db, dsn: dsn}, nil
}

// Initialize creates the schema.
func (s *DocumentStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Query implements core.DocumentStore. Results are in insertion order.
func (s *DocumentStore) Query(ctx context.Context, collection, field string, value any) ([]core.Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields FROM documents
		WHERE collection = ? AND json_extract(fields, ?) = json_extract(?, '$')
		ORDER BY rowid
	`, collection, jsonPath(field), string(want))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		fields, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, id, err)
		}
		docs = append(docs, core.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// Get implements core.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return core.Document{}, core.ErrNotFound
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decode(raw)
	if err != nil {
		return core.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return core.Document{ID: id, Fields: fields}, nil
}

// Create implements core.DocumentStore.
func (s *DocumentStore) Create(ctx context.Context, collection string, fields core.Fields) (string, error) {
	data, err := encode(fields)
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)`,
		collection, id, data); err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

// Update implements core.DocumentStore.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields core.Fields) error {
	data, err := encode(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET fields = json_patch(fields, ?) WHERE collection = ? AND id = ?`,
		data, collection, id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, core.ErrNotFound)
	}
	return nil
}

// Upsert implements core.DocumentStore.
func (s *DocumentStore) Upsert(ctx context.Context, collection, id string, fields core.Fields) error {
	data, err := encode(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET fields = json_patch(documents.fields, excluded.fields)
	`, collection, id, data); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete implements core.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *DocumentStore) ComponentType() string {
	return "sqlite-document-store"
}

func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}

func encode(fields core.Fields) (string, error) {
	if fields == nil {
		fields = core.Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

func decode(raw string) (core.Fields, error) {
	fields := core.Fields{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
