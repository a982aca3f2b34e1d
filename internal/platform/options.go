package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/tabnotes/pkg/core"
)

// options holds the internal configuration of a Workspace.
type options struct {
	logger        *slog.Logger
	dataDir       string
	configFile    string
	local         core.LocalStore
	remote        core.DocumentStore
	remoteURI     *string
	user          string
	remoteTimeout time.Duration
}

// Option defines a functional option for configuring a Workspace.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDataDir sets the directory holding the local store and the config file.
func WithDataDir(dir string) Option {
	return func(o *options) {
		o.dataDir = dir
	}
}

// WithConfigFile points at a YAML config file other than <data dir>/tabnotes.yaml.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithLocalStore injects the LocalStore, skipping the filesystem one.
func WithLocalStore(store core.LocalStore) Option {
	return func(o *options) {
		o.local = store
	}
}

// WithRemoteStore injects the remote DocumentStore, skipping URI resolution.
func WithRemoteStore(store core.DocumentStore) Option {
	return func(o *options) {
		o.remote = store
	}
}

// WithRemoteURI selects the remote store by URI (memory://, redis://,
// rediss://, sqlite://, postgres://). An empty URI disables the remote
// store even when the environment or the config file name one.
func WithRemoteURI(uri string) Option {
	return func(o *options) {
		o.remoteURI = &uri
	}
}

// WithUser signs the given user in when the workspace opens.
func WithUser(userID string) Option {
	return func(o *options) {
		o.user = userID
	}
}

// WithRemoteTimeout bounds every background remote write.
func WithRemoteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.remoteTimeout = d
	}
}
