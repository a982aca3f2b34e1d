package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/tabnotes/pkg/adapters/fs"
	"github.com/aretw0/tabnotes/pkg/adapters/memory"
	"github.com/aretw0/tabnotes/pkg/adapters/postgres"
	redisstore "github.com/aretw0/tabnotes/pkg/adapters/redis"
	"github.com/aretw0/tabnotes/pkg/adapters/sqlite"
	"github.com/aretw0/tabnotes/pkg/core"
)

// OpenRemote builds and initializes the DocumentStore named by uri.
// An empty uri means no remote store and returns nil.
func OpenRemote(ctx context.Context, uri string) (core.DocumentStore, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("remote %q: missing scheme", uri)
	}

	var store core.DocumentStore
	var err error
	switch strings.ToLower(scheme) {
	case "memory":
		store = memory.NewDocumentStore()
	case "redis", "rediss":
		store, err = redisstore.NewDocumentStore(uri)
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("remote %q: missing database path", uri)
		}
		store, err = sqlite.NewDocumentStore(rest)
	case "postgres", "postgresql":
		store, err = postgres.Open(ctx, uri)
	default:
		return nil, fmt.Errorf("remote %q: unknown scheme %q", uri, scheme)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		closeStore(store)
		return nil, fmt.Errorf("initialize %s remote: %w", scheme, err)
	}
	return store, nil
}

// OpenLocal builds the filesystem LocalStore rooted at dataDir.
func OpenLocal(ctx context.Context, dataDir string, logger *slog.Logger) (*fs.Store, error) {
	store := fs.NewStore(fs.Config{Path: dataDir, Logger: logger})
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func closeStore(store any) error {
	if c, ok := store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
