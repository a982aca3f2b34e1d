// Package tabs owns the in-memory tab state and every structural mutation
// of it.
//
// Each mutation is applied to memory first and then, for signed-in users,
// propagated to the remote store through best-effort tasks. The state is
// only ever replaced wholesale: readers always see a complete snapshot.
package tabs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/aretw0/tabnotes/pkg/besteffort"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/ordering"
	"github.com/aretw0/tabnotes/pkg/remote"
)

// Config holds the dependencies of a Manager.
type Config struct {
	// Remote is nil when no remote store is configured.
	Remote *remote.Collections
	Runner *besteffort.Runner
	Logger *slog.Logger
	// NewTabID generates tab identifiers. Defaults to random UUIDs.
	NewTabID func() string
}

// Manager is the single owner of the tab state.
type Manager struct {
	// notifyMu serializes whole updates, observers included, so observers
	// see snapshots in the order they were produced.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	state    core.State
	revision uint64

	observers map[int]func(core.State)
	nextObs   int
	// observerCount mirrors len(observers) for readers that must not wait
	// on notifyMu.
	observerCount atomic.Int32

	remote   *remote.Collections
	orders   *ordering.Engine
	runner   *besteffort.Runner
	logger   *slog.Logger
	newTabID func() string
}

// NewManager creates a Manager holding only the empty default tab.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runner := cfg.Runner
	if runner == nil {
		runner = besteffort.NewRunner(logger, 0)
	}
	newTabID := cfg.NewTabID
	if newTabID == nil {
		newTabID = uuid.NewString
	}
	m := &Manager{
		state: core.State{
			Tabs:       core.DefaultCollection(nil),
			CurrentTab: core.DefaultTabID,
		},
		observers: make(map[int]func(core.State)),
		remote:    cfg.Remote,
		runner:    runner,
		logger:    logger,
		newTabID:  newTabID,
	}
	if cfg.Remote != nil {
		m.orders = ordering.NewEngine(cfg.Remote.Orders)
	}
	return m
}

// Snapshot returns the current state. The returned value must not be modified.
func (m *Manager) Snapshot() core.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn to receive every new snapshot. Observers run
// synchronously after the update and must not call mutating methods or
// Subscribe; Snapshot and State are safe.
func (m *Manager) Subscribe(fn func(core.State)) (unsubscribe func()) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.observerCount.Add(1)
	return func() {
		m.notifyMu.Lock()
		defer m.notifyMu.Unlock()
		if _, ok := m.observers[id]; ok {
			delete(m.observers, id)
			m.observerCount.Add(-1)
		}
	}
}

// Wait blocks until all background remote writes have finished.
func (m *Manager) Wait() {
	m.runner.Wait()
}

// update is the only path that changes state. fn receives the current
// snapshot and returns the next one, or false to leave state untouched.
func (m *Manager) update(fn func(s core.State) (core.State, bool)) (core.State, bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	next, changed := fn(m.state)
	if changed {
		m.state = next
		m.revision++
	}
	current := m.state
	m.mu.Unlock()

	if changed {
		for _, obs := range m.observers {
			obs(current)
		}
	}
	return current, changed
}

// SetUser switches the identity remote writes are scoped to.
// An empty id means anonymous: no remote writes are issued.
func (m *Manager) SetUser(userID string) {
	m.update(func(s core.State) (core.State, bool) {
		if s.UserID == userID {
			return s, false
		}
		s.UserID = userID
		return s, true
	})
}

// Reset replaces the whole tab collection, e.g. after loading from a store.
// An empty collection is replaced by the default tab.
func (m *Manager) Reset(tabs core.TabCollection, current string) {
	if len(tabs) == 0 {
		tabs = core.DefaultCollection(nil)
	}
	if _, ok := tabs[current]; !ok {
		current = tabs.IDs()[0]
	}
	m.update(func(s core.State) (core.State, bool) {
		s.Tabs = tabs
		s.CurrentTab = current
		return s, true
	})
}

// ApplyOrder re-sequences the current tabs against records.
func (m *Manager) ApplyOrder(records ordering.Records) {
	if len(records) == 0 {
		return
	}
	m.update(func(s core.State) (core.State, bool) {
		s.Tabs = ordering.Apply(s.Tabs, records)
		return s, true
	})
}

// SetCurrentTab moves the current tab pointer.
func (m *Manager) SetCurrentTab(tabID string) error {
	var err error
	m.update(func(s core.State) (core.State, bool) {
		if _, ok := s.Tabs[tabID]; !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if s.CurrentTab == tabID {
			return s, false
		}
		s.CurrentTab = tabID
		return s, true
	})
	return err
}

// ResolvePending replaces a pending note id with the one the store
// assigned, wherever the note currently lives. It reports the tab holding
// the note, or false if the note no longer exists.
func (m *Manager) ResolvePending(pending core.NoteID, id string) (string, bool) {
	var tabID string
	_, found := m.update(func(s core.State) (core.State, bool) {
		for tid, tab := range s.Tabs {
			for i, item := range tab.Items {
				if item.ID != pending {
					continue
				}
				items := cloneItems(tab.Items)
				items[i].ID = core.PersistedID(id)
				tab.Items = items
				s.Tabs = s.Tabs.Clone()
				s.Tabs[tid] = tab
				tabID = tid
				return s, true
			}
		}
		return s, false
	})
	return tabID, found
}

func (m *Manager) authenticated(s core.State) bool {
	return s.UserID != "" && m.remote != nil
}

// recordOrder persists items as the order of a tab.
func (m *Manager) recordOrder(ctx context.Context, userID, tabID string, items []core.Note) {
	if m.orders == nil || userID == "" {
		return
	}
	m.runner.Go(ctx, "record order", func(ctx context.Context) error {
		return m.orders.Record(ctx, userID, tabID, items)
	}, "user", userID, "tab", tabID)
}

func cloneItems(items []core.Note) []core.Note {
	out := make([]core.Note, len(items))
	copy(out, items)
	return out
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", core.ErrEmptyTitle
	}
	return title, nil
}
