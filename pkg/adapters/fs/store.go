// Package fs implements core.LocalStore over a directory of JSON files,
// one file per key.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/tabnotes/pkg/core"
)

const fileExt = ".json"

// Config holds the configuration of a Store.
type Config struct {
	Path   string
	Logger *slog.Logger
	// ErrorHandler receives watcher errors. Defaults to logging them.
	ErrorHandler func(error)
	// Debounce coalesces bursts of changes to one key. Defaults to 50ms.
	Debounce time.Duration
}

// Store keeps each key in <Path>/<key>.json.
type Store struct {
	Path   string
	config Config

	mu            sync.RWMutex
	watcherActive bool
	lastWrite     *time.Time
	writes        int
}

var _ core.LocalStore = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)

// NewStore creates a filesystem-backed LocalStore.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	return &Store{Path: config.Path, config: config}
}

// Initialize creates the data directory.
func (s *Store) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(s.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", s.Path, err)
	}
	return nil
}

// ValidateKey rejects keys that cannot be used as a plain file name.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.HasPrefix(key, TempFilePrefix) {
		return fmt.Errorf("%w: %q", core.ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, `/\:*?"<>|`) || strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: %q", core.ErrInvalidKey, key)
	}
	return nil
}

func (s *Store) filename(key string) string {
	return filepath.Join(s.Path, key+fileExt)
}

// Get implements core.LocalStore. A missing key yields nil.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filename(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set implements core.LocalStore. The value must be valid JSON.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("value of %s is not valid JSON", key)
	}
	if err := os.MkdirAll(s.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", s.Path, err)
	}
	if err := writeFileAtomic(s.filename(key), value, 0o644); err != nil {
		return err
	}

	s.mu.Lock()
	now := time.Now()
	s.lastWrite = &now
	s.writes++
	s.mu.Unlock()

	s.config.Logger.Debug("local value written", "key", key, "bytes", len(value))
	return nil
}

// Delete removes a key. Removing a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(s.filename(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys matching a doublestar pattern ("*" for all),
// sorted.
func (s *Store) Keys(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	entries, err := os.ReadDir(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Path, err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || isTempFile(name) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// keyOf maps a file path reported by the watcher back to its key.
func (s *Store) keyOf(path string) (string, bool) {
	if filepath.Dir(path) != filepath.Clean(s.Path) {
		return "", false
	}
	name := filepath.Base(path)
	if isTempFile(name) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, fileExt)
	if ValidateKey(key) != nil {
		return "", false
	}
	return key, true
}
