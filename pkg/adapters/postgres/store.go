// Package postgres implements core.DocumentStore over PostgreSQL, storing
// document fields as jsonb.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aretw0/tabnotes/pkg/core"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS tabnotes_documents (
    seq BIGSERIAL,
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    fields JSONB NOT NULL DEFAULT '{}'::jsonb,
    PRIMARY KEY (collection, id)
)`, `
CREATE INDEX IF NOT EXISTS idx_tabnotes_documents_user
    ON tabnotes_documents (collection, (fields ->> 'userId'))`,
}

// DocumentStore is the PostgreSQL-backed document store.
type DocumentStore struct {
	db *sql.DB
}

var _ core.DocumentStore = (*DocumentStore)(nil)
var _ introspection.Component = (*DocumentStore)(nil)

// Open connects to databaseURL through the pgx driver.
func Open(ctx context.Context, databaseURL string) (*DocumentStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(8)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DocumentStore{db: db}, nil
}

// Initialize creates the documents table.
func (s *DocumentStore) Initialize(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close closes the pool.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// Query implements core.DocumentStore. Results are in insertion order.
func (s *DocumentStore) Query(ctx context.Context, collection, field string, value any) ([]core.Document, error) {
	want, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fields FROM tabnotes_documents
		WHERE collection = $1 AND fields -> $2::text = $3::jsonb
		ORDER BY seq
	`, collection, field, string(want))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var id string
		var raw []byte
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
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM tabnotes_documents WHERE collection = $1 AND id = $2`,
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
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tabnotes_documents (collection, id, fields) VALUES ($1, $2, $3::jsonb)`,
		collection, id, data); err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

// Update implements core.DocumentStore. Fields are merged shallowly.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields core.Fields) error {
	data, err := encode(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tabnotes_documents SET fields = fields || $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, id, data)
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
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO tabnotes_documents (collection, id, fields) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET fields = tabnotes_documents.fields || EXCLUDED.fields
	`, collection, id, data); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete implements core.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM tabnotes_documents WHERE collection = $1 AND id = $2`,
		collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *DocumentStore) ComponentType() string {
	return "postgres-document-store"
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

func decode(raw []byte) (core.Fields, error) {
	fields := core.Fields{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
