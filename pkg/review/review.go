// Package review tracks whether AI suggestions are enabled for a user and
// the latest suggestions the external generator stored.
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/tabnotes/pkg/besteffort"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/remote"
)

// Config holds the dependencies of a State.
type Config struct {
	Remote *remote.Collections
	Runner *besteffort.Runner
	Logger *slog.Logger
}

// State is the in-memory ReviewRecord of the signed-in user.
type State struct {
	mu     sync.RWMutex
	record core.ReviewRecord

	remote *remote.Collections
	runner *besteffort.Runner
	logger *slog.Logger
}

// New creates a State with suggestions disabled.
func New(cfg Config) *State {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runner := cfg.Runner
	if runner == nil {
		runner = besteffort.NewRunner(logger, 0)
	}
	return &State{
		record: emptyRecord(""),
		remote: cfg.Remote,
		runner: runner,
		logger: logger,
	}
}

func emptyRecord(userID string) core.ReviewRecord {
	return core.ReviewRecord{UserID: userID, Suggestions: core.Suggestions{}}
}

// Fetch loads the record of userID. A missing record is not an error: the
// state is left disabled with no suggestions.
func (s *State) Fetch(ctx context.Context, userID string) error {
	if s.remote == nil {
		return core.ErrNoRemote
	}
	docs, err := s.remote.Review.Query(ctx, core.FieldUserID, userID)
	if err != nil {
		return fmt.Errorf("fetch review of %s: %w", userID, err)
	}

	record := emptyRecord(userID)
	if len(docs) > 0 {
		record = docs[0].Data.Record()
		record.UserID = userID
	} else {
		s.logger.Debug("no review found", "user", userID)
	}

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	return nil
}

// SetEnabled flips the flag in memory, then updates the remote record or
// creates it with empty suggestion categories. Callers are expected to have
// obtained the user's confirmation before enabling.
func (s *State) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	if userID == "" {
		return core.ErrAnonymous
	}
	if s.remote == nil {
		return core.ErrNoRemote
	}

	s.mu.Lock()
	if s.record.UserID != userID {
		s.record = emptyRecord(userID)
	}
	s.record.Enabled = enabled
	s.mu.Unlock()

	s.runner.Go(ctx, "set review enabled", func(ctx context.Context) error {
		_, err := s.remote.Review.Get(ctx, userID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			return s.remote.Review.Upsert(ctx, userID, core.ReviewDocument{
				UserID:  userID,
				Enabled: enabled,
				Review:  core.EmptySuggestions(),
			})
		case err != nil:
			return err
		default:
			return s.remote.Review.Update(ctx, userID, map[string]any{"enabled": enabled})
		}
	}, "user", userID, "enabled", enabled)
	return nil
}

// Enabled reports whether suggestions are enabled.
func (s *State) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record.Enabled
}

// Record returns a copy of the current record.
func (s *State) Record() core.ReviewRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.record
	r.Suggestions = make(core.Suggestions, len(s.record.Suggestions))
	for category, items := range s.record.Suggestions {
		r.Suggestions[category] = append([]string(nil), items...)
	}
	return r
}

// Reset forgets the loaded record, e.g. on logout.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = emptyRecord("")
}

// Wait blocks until pending remote writes have finished.
func (s *State) Wait() {
	s.runner.Wait()
}
