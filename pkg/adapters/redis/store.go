// Package redis implements core.DocumentStore over Redis.
//
// Each document is a JSON string at <prefix><collection>:doc:<id>. A sorted
// set per collection keeps ids in creation order, and a second sorted set
// per user id serves the userId queries every collection relies on.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aretw0/tabnotes/pkg/core"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "tabnotes:"

const maxTxRetries = 16

// DocumentStore implements core.DocumentStore using Redis.
type DocumentStore struct {
	client *redis.Client
	prefix string
}

var _ core.DocumentStore = (*DocumentStore)(nil)
var _ introspection.Component = (*DocumentStore)(nil)

// NewDocumentStore connects to the Redis server at redisURL.
func NewDocumentStore(redisURL string) (*DocumentStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewDocumentStoreWithClient(client, DefaultPrefix), nil
}

// NewDocumentStoreWithClient creates a store from an existing client.
func NewDocumentStoreWithClient(client *redis.Client, prefix string) *DocumentStore {
	return &DocumentStore{client: client, prefix: prefix}
}

func (s *DocumentStore) docKey(collection, id string) string {
	return s.prefix + collection + ":doc:" + id
}

func (s *DocumentStore) idsKey(collection string) string {
	return s.prefix + collection + ":ids"
}

func (s *DocumentStore) seqKey(collection string) string {
	return s.prefix + collection + ":seq"
}

func (s *DocumentStore) userKey(collection, userID string) string {
	return s.prefix + collection + ":user:" + userID
}

// Initialize checks connectivity. Redis needs no schema.
func (s *DocumentStore) Initialize(ctx context.Context) error {
	return s.Ping(ctx)
}

// Query implements core.DocumentStore. Results are in creation order.
func (s *DocumentStore) Query(ctx context.Context, collection, field string, value any) ([]core.Document, error) {
	setKey := s.idsKey(collection)
	if userID, ok := value.(string); ok && field == core.FieldUserID {
		setKey = s.userKey(collection, userID)
	}

	ids, err := s.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(collection, id)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	want, err := normalize(value)
	if err != nil {
		return nil, err
	}
	var docs []core.Document
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		fields, err := decode(str)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, ids[i], err)
		}
		if got, ok := fields[field]; ok && equal(got, want) {
			docs = append(docs, core.Document{ID: ids[i], Fields: fields})
		}
	}
	return docs, nil
}

// Get implements core.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (core.Document, error) {
	str, err := s.client.Get(ctx, s.docKey(collection, id)).Result()
	if err == redis.Nil {
		return core.Document{}, core.ErrNotFound
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decode(str)
	if err != nil {
		return core.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return core.Document{ID: id, Fields: fields}, nil
}

// Create implements core.DocumentStore.
func (s *DocumentStore) Create(ctx context.Context, collection string, fields core.Fields) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.write(ctx, collection, id, fields, writeCreate); err != nil {
		return "", err
	}
	return id, nil
}

// Update implements core.DocumentStore.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields core.Fields) error {
	return s.write(ctx, collection, id, fields, writeUpdate)
}

// Upsert implements core.DocumentStore.
func (s *DocumentStore) Upsert(ctx context.Context, collection, id string, fields core.Fields) error {
	return s.write(ctx, collection, id, fields, writeUpsert)
}

type writeMode int

const (
	writeCreate writeMode = iota
	writeUpdate
	writeUpsert
)

// write merges fields into a document inside a WATCH transaction and keeps
// the id and user indexes in step with it.
func (s *DocumentStore) write(ctx context.Context, collection, id string, fields core.Fields, mode writeMode) error {
	key := s.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		merged := core.Fields{}
		var oldUser string
		exists := false

		if mode != writeCreate {
			str, err := tx.Get(ctx, key).Result()
			switch {
			case err == redis.Nil:
			case err != nil:
				return err
			default:
				exists = true
				if merged, err = decode(str); err != nil {
					return err
				}
				oldUser, _ = merged[core.FieldUserID].(string)
			}
		}
		if !exists && mode == writeUpdate {
			return fmt.Errorf("update %s/%s: %w", collection, id, core.ErrNotFound)
		}

		for k, v := range fields {
			merged[k] = v
		}
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		newUser, _ := merged[core.FieldUserID].(string)

		var score float64
		if exists {
			if score, err = tx.ZScore(ctx, s.idsKey(collection), id).Result(); err != nil && err != redis.Nil {
				return err
			}
		} else {
			seq, err := tx.Incr(ctx, s.seqKey(collection)).Result()
			if err != nil {
				return err
			}
			score = float64(seq)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, s.idsKey(collection), redis.Z{Score: score, Member: id})
			if exists && oldUser != "" && oldUser != newUser {
				pipe.ZRem(ctx, s.userKey(collection, oldUser), id)
			}
			if newUser != "" {
				pipe.ZAdd(ctx, s.userKey(collection, newUser), redis.Z{Score: score, Member: id})
			}
			return nil
		})
		return err
	}

	return s.retry(ctx, txf, key)
}

// Delete implements core.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	key := s.docKey(collection, id)
	txf := func(tx *redis.Tx) error {
		str, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		fields, err := decode(str)
		if err != nil {
			return err
		}
		userID, _ := fields[core.FieldUserID].(string)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.idsKey(collection), id)
			if userID != "" {
				pipe.ZRem(ctx, s.userKey(collection, userID), id)
			}
			return nil
		})
		return err
	}
	if err := s.retry(ctx, txf, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) retry(ctx context.Context, txf func(*redis.Tx) error, key string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction on %s: %w", key, redis.TxFailedErr)
}

// Close closes the Redis connection.
func (s *DocumentStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ComponentType implements introspection.Component.
func (s *DocumentStore) ComponentType() string {
	return "redis-document-store"
}

func decode(str string) (core.Fields, error) {
	fields := core.Fields{}
	if err := json.Unmarshal([]byte(str), &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode query value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func equal(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}
