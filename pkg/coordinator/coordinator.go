// Package coordinator moves a session between anonymous, LocalStore-backed
// state and authenticated, remote-backed state.
//
//	Anonymous --Login--> Migrating --> Authenticated --Logout--> Anonymous
//
// While Anonymous every snapshot of the tab manager is written whole to the
// LocalStore. On Login the remote data of the user wins if there is any;
// otherwise the local tabs are pushed to the remote store once.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	changes "github.com/aretw0/tabnotes/pkg/adapters/lifecycle"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/ordering"
	"github.com/aretw0/tabnotes/pkg/remote"
	"github.com/aretw0/tabnotes/pkg/review"
	"github.com/aretw0/tabnotes/pkg/tabs"
)

// Phase is the identity state of a session.
type Phase int32

const (
	Anonymous Phase = iota
	Migrating
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Anonymous:
		return "anonymous"
	case Migrating:
		return "migrating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Config holds the collaborators of a Coordinator.
type Config struct {
	Local core.LocalStore
	// Remote is nil when no remote store is configured; Login then fails.
	Remote *remote.Collections
	Tabs   *tabs.Manager
	Review *review.State
	Logger *slog.Logger
}

// LoginResult describes what Login did.
type LoginResult struct {
	UserID string
	// Migrated is true when the remote store was empty and the local tabs
	// were pushed to it.
	Migrated bool
	Tabs     int
	Notes    int
	// Failed counts migration writes that did not succeed.
	Failed int
}

// Coordinator owns the identity transitions of one session.
type Coordinator struct {
	// mu serializes Start, Login and Logout.
	mu     sync.Mutex
	phase  atomic.Int32
	userID atomic.Value

	local  core.LocalStore
	remote *remote.Collections
	orders *ordering.Engine
	tabs   *tabs.Manager
	review *review.State
	logger *slog.Logger

	baseCtx     context.Context
	unsubscribe func()

	writeMu     sync.Mutex
	lastWritten []byte
	writes      int
	writeErrors int
	lastSync    *time.Time
	following   atomic.Bool
}

// New creates a Coordinator in the Anonymous phase.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	manager := cfg.Tabs
	if manager == nil {
		manager = tabs.NewManager(tabs.Config{Remote: cfg.Remote, Logger: logger})
	}
	rev := cfg.Review
	if rev == nil {
		rev = review.New(review.Config{Remote: cfg.Remote, Logger: logger})
	}
	c := &Coordinator{
		local:   cfg.Local,
		remote:  cfg.Remote,
		tabs:    manager,
		review:  rev,
		logger:  logger,
		baseCtx: context.Background(),
	}
	if cfg.Remote != nil {
		c.orders = ordering.NewEngine(cfg.Remote.Orders)
	}
	c.userID.Store("")
	return c
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// UserID returns the signed-in user, or "" while anonymous.
func (c *Coordinator) UserID() string {
	return c.userID.Load().(string)
}

// Tabs returns the tab manager driven by the coordinator.
func (c *Coordinator) Tabs() *tabs.Manager {
	return c.tabs
}

// Review returns the review state driven by the coordinator.
func (c *Coordinator) Review() *review.State {
	return c.review
}

// Start loads the anonymous state from the LocalStore, starts writing every
// change back to it, and signs the remembered user back in.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = context.WithoutCancel(ctx)

	collection, err := c.loadLocal(ctx)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.tabs.Reset(collection, core.DefaultTabID)
	if c.unsubscribe == nil {
		c.unsubscribe = c.tabs.Subscribe(c.writeThrough)
	}

	var identity core.Identity
	_, err = core.GetJSON(ctx, c.local, core.IdentityKey, &identity)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if identity.Anonymous() {
		return nil
	}
	if c.remote == nil {
		c.logger.Warn("remembered user ignored, no remote store configured", "user", identity.UserID)
		return nil
	}
	c.logger.Debug("resuming session", "user", identity.UserID)
	_, err = c.Login(ctx, identity.UserID)
	return err
}

// Stop detaches the LocalStore write-through.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// loadLocal reads tabData, falling back to the legacy single-tab item list,
// then to the empty default tab.
func (c *Coordinator) loadLocal(ctx context.Context) (core.TabCollection, error) {
	var collection core.TabCollection
	found, err := core.GetJSON(ctx, c.local, core.TabDataKey, &collection)
	if err != nil {
		return nil, err
	}
	if found && len(collection) > 0 {
		for id, tab := range collection {
			if tab.Items == nil {
				tab.Items = []core.Note{}
				collection[id] = tab
			}
		}
		return collection, nil
	}

	var items []core.Note
	if _, err := core.GetJSON(ctx, c.local, core.LegacyItemsKey, &items); err != nil {
		return nil, err
	}
	return core.DefaultCollection(items), nil
}

// writeThrough runs for every snapshot of the tab manager.
func (c *Coordinator) writeThrough(s core.State) {
	if c.Phase() != Anonymous || s.Authenticated() {
		return
	}
	data, err := json.Marshal(s.Tabs)
	if err != nil {
		c.logger.Warn("failed to encode local tab data", "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if bytes.Equal(data, c.lastWritten) {
		return
	}
	if err := c.local.Set(c.baseCtx, core.TabDataKey, data); err != nil {
		c.writeErrors++
		c.logger.Warn("failed to write local tab data", "error", err)
		return
	}
	c.lastWritten = data
	c.writes++
}

// Login signs userID in. If the remote store holds notes, tabs or order
// records for the user they replace the in-memory state; otherwise the in-memory tabs are
// migrated to the remote store. Remote read errors abort the login and
// leave the session anonymous.
func (c *Coordinator) Login(ctx context.Context, userID string) (LoginResult, error) {
	if userID == "" {
		return LoginResult{}, core.ErrAnonymous
	}
	if c.remote == nil {
		return LoginResult{}, core.ErrNoRemote
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Phase() == Authenticated {
		if c.UserID() == userID {
			s := c.tabs.Snapshot()
			return LoginResult{UserID: userID, Tabs: len(s.Tabs), Notes: s.Tabs.Count()}, nil
		}
		if err := c.logoutLocked(ctx); err != nil && !errors.Is(err, core.ErrMalformedLocalData) {
			return LoginResult{}, err
		}
	}

	c.phase.Store(int32(Migrating))
	c.logger.Debug("login started", "user", userID)

	fetched, err := c.fetchRemote(ctx, userID)
	if err != nil {
		c.phase.Store(int32(Anonymous))
		return LoginResult{}, err
	}

	var result LoginResult
	if fetched.exists() {
		result = c.adoptRemote(userID, fetched)
	} else {
		result = c.migrate(ctx, userID)
	}

	c.userID.Store(userID)
	c.phase.Store(int32(Authenticated))
	now := time.Now()
	c.writeMu.Lock()
	c.lastSync = &now
	c.writeMu.Unlock()

	if err := core.SetJSON(ctx, c.local, core.IdentityKey, core.Identity{UserID: userID}); err != nil {
		c.logger.Warn("failed to remember identity", "user", userID, "error", err)
	}
	if err := c.review.Fetch(ctx, userID); err != nil {
		c.logger.Warn("failed to fetch review", "user", userID, "error", err)
	}

	c.logger.Info("signed in", "user", userID, "migrated", result.Migrated,
		"tabs", result.Tabs, "notes", result.Notes)
	return result, nil
}

type remoteData struct {
	notes  []noteDoc
	tabs   []tabDoc
	orders ordering.Records
}

type noteDoc struct {
	id  string
	doc core.NoteDocument
}

type tabDoc struct {
	id  string
	doc core.TabDocument
}

func (r remoteData) exists() bool {
	return len(r.notes) > 0 || len(r.tabs) > 0 || len(r.orders) > 0
}

func (c *Coordinator) fetchRemote(ctx context.Context, userID string) (remoteData, error) {
	var out remoteData

	notes, err := c.remote.Notes.Query(ctx, core.FieldUserID, userID)
	if err != nil {
		return out, fmt.Errorf("fetch notes: %w", err)
	}
	for _, n := range notes {
		out.notes = append(out.notes, noteDoc{id: n.ID, doc: n.Data})
	}

	tabDocs, err := c.remote.Tabs.Query(ctx, core.FieldUserID, userID)
	if err != nil {
		return out, fmt.Errorf("fetch tabs: %w", err)
	}
	for _, t := range tabDocs {
		out.tabs = append(out.tabs, tabDoc{id: t.ID, doc: t.Data})
	}

	if out.orders, err = c.orders.Fetch(ctx, userID); err != nil {
		return out, err
	}
	return out, nil
}

// collectionFromRemote groups notes into tabs. A tab is named by its tabs
// document, else by the tabName carried on its notes, else UnnamedTab.
func collectionFromRemote(data remoteData) core.TabCollection {
	collection := core.TabCollection{}
	for _, t := range data.tabs {
		tabID := t.doc.TabID
		if tabID == "" {
			continue
		}
		collection[tabID] = core.Tab{Name: t.doc.Name, Items: []core.Note{}}
	}

	for _, n := range data.notes {
		tab, ok := collection[n.doc.TabID]
		if !ok {
			tab = core.Tab{Items: []core.Note{}}
		}
		if tab.Name == "" {
			tab.Name = n.doc.TabName
		}
		tab.Items = append(tab.Items, core.Note{
			Title:       n.doc.NoteTitle,
			Description: n.doc.Description,
			ID:          core.PersistedID(n.id),
		})
		collection[n.doc.TabID] = tab
	}

	for id, tab := range collection {
		if tab.Name == "" {
			tab.Name = core.UnnamedTab
			collection[id] = tab
		}
	}
	return ordering.Apply(collection, data.orders)
}

func (c *Coordinator) adoptRemote(userID string, data remoteData) LoginResult {
	collection := collectionFromRemote(data)
	c.tabs.SetUser(userID)
	c.tabs.Reset(collection, c.tabs.Snapshot().CurrentTab)
	return LoginResult{UserID: userID, Tabs: len(collection), Notes: collection.Count()}
}

// migrate pushes the in-memory tabs to an empty remote store. Individual
// write failures are logged and counted; the notes concerned stay pending.
func (c *Coordinator) migrate(ctx context.Context, userID string) LoginResult {
	before := c.tabs.Snapshot()

	// Fresh pending ids: ids persisted by an earlier session belong to
	// documents that are not in this user's store.
	collection := make(core.TabCollection, len(before.Tabs))
	for id, tab := range before.Tabs {
		items := make([]core.Note, len(tab.Items))
		for i, n := range tab.Items {
			items[i] = core.Note{Title: n.Title, Description: n.Description, ID: core.NewPendingID()}
		}
		tab.Items = items
		tab.NameEditable = false
		collection[id] = tab
	}
	c.tabs.SetUser(userID)
	c.tabs.Reset(collection, before.CurrentTab)

	result := LoginResult{UserID: userID, Migrated: true}
	for _, tabID := range collection.IDs() {
		tab := collection[tabID]
		if len(tab.Items) == 0 {
			continue
		}
		result.Tabs++

		if err := c.remote.Tabs.Upsert(ctx, core.TabKey(userID, tabID), core.TabDocument{
			UserID: userID, TabID: tabID, Name: tab.Name,
		}); err != nil {
			result.Failed++
			c.logger.Warn("migration: tab not saved", "user", userID, "tab", tabID, "error", err)
		}

		for _, note := range tab.Items {
			id, err := c.remote.Notes.Create(ctx, core.NoteDocument{
				UserID:      userID,
				TabID:       tabID,
				TabName:     tab.Name,
				NoteTitle:   note.Title,
				Description: note.Description,
			})
			if err != nil {
				result.Failed++
				c.logger.Warn("migration: note not saved", "user", userID, "tab", tabID, "error", err)
				continue
			}
			c.tabs.ResolvePending(note.ID, id)
			result.Notes++
		}

		items := c.tabs.Snapshot().Tabs[tabID].Items
		if err := c.orders.Record(ctx, userID, tabID, items); err != nil {
			result.Failed++
			c.logger.Warn("migration: order not saved", "user", userID, "tab", tabID, "error", err)
		}
	}
	return result
}

// Logout returns the session to the Anonymous initial state: the LocalStore
// data is reloaded, the review state cleared and the identity forgotten.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logoutLocked(ctx)
}

// logoutLocked stays out of the Anonymous phase until the manager holds the
// local collection again, so the write-through never sees signed-in tabs.
func (c *Coordinator) logoutLocked(ctx context.Context) error {
	previous := c.UserID()

	c.phase.Store(int32(Migrating))
	defer c.phase.Store(int32(Anonymous))

	c.userID.Store("")
	c.tabs.SetUser("")
	c.review.Reset()

	if err := core.SetJSON(ctx, c.local, core.IdentityKey, core.Identity{}); err != nil {
		c.logger.Warn("failed to forget identity", "error", err)
	}

	collection, err := c.loadLocal(ctx)
	if err != nil {
		c.tabs.Reset(core.DefaultCollection(nil), core.DefaultTabID)
		return err
	}
	c.writeMu.Lock()
	c.lastWritten, _ = json.Marshal(collection)
	c.writeMu.Unlock()
	c.tabs.Reset(collection, core.DefaultTabID)

	if previous != "" {
		c.logger.Info("signed out", "user", previous)
	}
	return nil
}

// Follow reloads the anonymous state whenever another process changes the
// tab data in the LocalStore. It blocks until ctx is done.
func (c *Coordinator) Follow(ctx context.Context) error {
	watchable, ok := c.local.(core.Watchable)
	if !ok {
		return fmt.Errorf("local store %T cannot be watched", c.local)
	}
	events, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch local store: %w", err)
	}

	src := changes.NewSource(events, core.TabDataKey)
	if err := src.Start(ctx); err != nil {
		return err
	}

	c.following.Store(true)
	defer c.following.Store(false)

	for ev := range src.Events() {
		if e, ok := ev.(core.Event); !ok || e.Type == core.EventDelete {
			continue
		}
		if err := c.reload(ctx); err != nil {
			c.logger.Warn("failed to reload local tab data", "error", err)
		}
	}
	return nil
}

func (c *Coordinator) reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Phase() != Anonymous {
		return nil
	}

	data, err := c.local.Get(ctx, core.TabDataKey)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	own := bytes.Equal(data, c.lastWritten)
	c.writeMu.Unlock()
	if own || data == nil {
		return nil
	}

	collection, err := c.loadLocal(ctx)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	c.lastWritten, _ = json.Marshal(collection)
	c.writeMu.Unlock()

	c.tabs.Reset(collection, c.tabs.Snapshot().CurrentTab)
	c.logger.Debug("local tab data reloaded", "tabs", len(collection), "notes", collection.Count())
	return nil
}
