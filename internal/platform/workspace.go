package platform

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/tabnotes/pkg/besteffort"
	"github.com/aretw0/tabnotes/pkg/coordinator"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/remote"
	"github.com/aretw0/tabnotes/pkg/review"
	"github.com/aretw0/tabnotes/pkg/tabs"
)

// Workspace wires the stores and the domain components of one session.
type Workspace struct {
	Config Config
	Local  core.LocalStore
	Remote core.DocumentStore
	Tabs   *tabs.Manager
	Review *review.State
	Sync   *coordinator.Coordinator

	runner     *besteffort.Runner
	logger     *slog.Logger
	ownsRemote bool
}

// Open resolves the configuration, opens the stores, loads the local state
// and signs the configured or remembered user in.
func Open(ctx context.Context, opts ...Option) (*Workspace, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg, err := resolve(o)
	if err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	local := o.local
	if local == nil {
		fsStore, err := OpenLocal(ctx, cfg.DataDir, logger)
		if err != nil {
			return nil, err
		}
		local = fsStore
	}

	store := o.remote
	ownsRemote := false
	if store == nil {
		if store, err = OpenRemote(ctx, cfg.Remote); err != nil {
			return nil, err
		}
		ownsRemote = store != nil
	}

	runner := besteffort.NewRunner(logger, cfg.RemoteTimeout)
	colls := remote.Open(store)
	w := &Workspace{
		Config:     cfg,
		Local:      local,
		Remote:     store,
		Tabs:       tabs.NewManager(tabs.Config{Remote: colls, Runner: runner, Logger: logger}),
		Review:     review.New(review.Config{Remote: colls, Runner: runner, Logger: logger}),
		runner:     runner,
		logger:     logger,
		ownsRemote: ownsRemote,
	}
	w.Sync = coordinator.New(coordinator.Config{
		Local:  local,
		Remote: colls,
		Tabs:   w.Tabs,
		Review: w.Review,
		Logger: logger,
	})

	if err := w.Sync.Start(ctx); err != nil {
		_ = w.Close()
		return nil, err
	}
	if cfg.User != "" && w.Sync.UserID() != cfg.User {
		if _, err := w.Sync.Login(ctx, cfg.User); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	logger.Debug("workspace opened", "data_dir", cfg.DataDir, "remote", cfg.Remote != "" || o.remote != nil,
		"phase", w.Sync.Phase().String())
	return w, nil
}

// Wait blocks until every background remote write has finished.
func (w *Workspace) Wait() {
	w.runner.Wait()
}

// Close waits for background writes, detaches the coordinator and closes
// the remote store if the workspace opened it.
func (w *Workspace) Close() error {
	w.runner.Wait()
	w.Sync.Stop()

	var errs []error
	if w.ownsRemote {
		errs = append(errs, closeStore(w.Remote))
	}
	return errors.Join(errs...)
}
