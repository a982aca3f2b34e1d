package tabnotes

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tabnotes/internal/platform"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/search"
)

// --- Types ---

type (
	Note          = core.Note
	NoteID        = core.NoteID
	Tab           = core.Tab
	TabCollection = core.TabCollection
	State         = core.State
	ReviewRecord  = core.ReviewRecord
)

// Workspace is an opened session: stores, tab manager, review state and
// the sync coordinator.
type Workspace = platform.Workspace

// Config is the resolved configuration of a Workspace.
type Config = platform.Config

const (
	DefaultTabID     = core.DefaultTabID
	PlaceholderTabID = core.PlaceholderTabID
)

// --- Configuration ---

// Option defines a functional option for configuring a Workspace.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithDataDir sets the directory of the local store and the config file.
func WithDataDir(dir string) Option {
	return platform.WithDataDir(dir)
}

// WithConfigFile points at a YAML config file.
func WithConfigFile(path string) Option {
	return platform.WithConfigFile(path)
}

// WithLocalStore injects a custom LocalStore.
func WithLocalStore(store core.LocalStore) Option {
	return platform.WithLocalStore(store)
}

// WithRemoteStore injects a custom remote DocumentStore.
func WithRemoteStore(store core.DocumentStore) Option {
	return platform.WithRemoteStore(store)
}

// WithRemoteURI selects the remote store by URI.
func WithRemoteURI(uri string) Option {
	return platform.WithRemoteURI(uri)
}

// WithUser signs the given user in when the workspace opens.
func WithUser(userID string) Option {
	return platform.WithUser(userID)
}

// WithRemoteTimeout bounds every background remote write.
func WithRemoteTimeout(d time.Duration) Option {
	return platform.WithRemoteTimeout(d)
}

// --- Factory ---

// Open opens a Workspace.
func Open(ctx context.Context, opts ...Option) (*Workspace, error) {
	return platform.Open(ctx, opts...)
}

// Resolve returns the configuration Open would use.
func Resolve(opts ...Option) (Config, error) {
	return platform.Resolve(opts...)
}

// Search returns the notes of tabs matching any word of query.
func Search(tabs TabCollection, query string, opts ...search.Option) ([]search.Result, error) {
	return search.Notes(tabs, query, opts...)
}
