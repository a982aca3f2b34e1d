package coordinator_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tabnotes/pkg/adapters/fs"
	"github.com/aretw0/tabnotes/pkg/adapters/memory"
	"github.com/aretw0/tabnotes/pkg/coordinator"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/remote"
)

func newCoordinator(t *testing.T, local core.LocalStore, store core.DocumentStore) *coordinator.Coordinator {
	t.Helper()
	c := coordinator.New(coordinator.Config{Local: local, Remote: remote.Open(store)})
	t.Cleanup(func() {
		c.Tabs().Wait()
		c.Review().Wait()
		c.Stop()
	})
	return c
}

func titles(items []core.Note) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.Title
	}
	return out
}

func readTabData(t *testing.T, local core.LocalStore) core.TabCollection {
	t.Helper()
	var tabs core.TabCollection
	found, err := core.GetJSON(context.Background(), local, core.TabDataKey, &tabs)
	require.NoError(t, err)
	require.True(t, found, "tabData written")
	return tabs
}

func TestCoordinator_AnonymousWritesThrough(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	store := memory.NewDocumentStore()
	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, coordinator.Anonymous, c.Phase())
	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "Buy milk")
	require.NoError(t, err)

	saved := readTabData(t, local)
	assert.Equal(t, []string{"Buy milk"}, titles(saved[core.DefaultTabID].Items))

	c.Tabs().Wait()
	assert.Zero(t, store.Len(core.CollectionNotes), "anonymous sessions never touch the remote store")
}

func TestCoordinator_StartLoadsLegacyItems(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	require.NoError(t, local.Set(ctx, core.LegacyItemsKey,
		[]byte(`[{"title":"a","description":"","itemId":null},{"title":"b","description":"x","itemId":"k1"}]`)))

	c := newCoordinator(t, local, nil)
	require.NoError(t, c.Start(ctx))

	s := c.Tabs().Snapshot()
	require.Len(t, s.Tabs, 1)
	tab := s.Tabs[core.DefaultTabID]
	assert.Equal(t, core.DefaultTabName, tab.Name)
	assert.Equal(t, []string{"a", "b"}, titles(tab.Items))
	assert.True(t, tab.Items[0].ID.IsPending())
	assert.Equal(t, "x", tab.Items[1].Description)
}

func TestCoordinator_StartPrefersTabData(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	require.NoError(t, local.Set(ctx, core.LegacyItemsKey, []byte(`[{"title":"old","description":"","itemId":null}]`)))
	require.NoError(t, local.Set(ctx, core.TabDataKey,
		[]byte(`{"0":{"name":"Home","items":[{"title":"new","description":"","itemId":null}]},"1":{"name":"Work"}}`)))

	c := newCoordinator(t, local, nil)
	require.NoError(t, c.Start(ctx))

	s := c.Tabs().Snapshot()
	assert.Equal(t, []string{"0", "1"}, s.Tabs.IDs())
	assert.Equal(t, []string{"new"}, titles(s.Tabs["0"].Items))
	assert.NotNil(t, s.Tabs["1"].Items, "missing items decode as an empty list")
}

func TestCoordinator_StartMalformedLocalData(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	require.NoError(t, local.Set(ctx, core.TabDataKey, []byte(`{"0":[1,2]}`)))

	c := newCoordinator(t, local, nil)
	err := c.Start(ctx)
	assert.ErrorIs(t, err, core.ErrMalformedLocalData)
	assert.Equal(t, coordinator.Anonymous, c.Phase())
}

func TestCoordinator_LoginMigratesLocalTabs(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	store := memory.NewDocumentStore()
	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))

	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "Call mom")
	require.NoError(t, err)
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "Buy milk")
	require.NoError(t, err)
	c.Tabs().AddTab()

	result, err := c.Login(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, result.Migrated)
	assert.Equal(t, 2, result.Notes)
	assert.Equal(t, 1, result.Tabs, "empty tabs are not pushed")
	assert.Zero(t, result.Failed)

	assert.Equal(t, coordinator.Authenticated, c.Phase())
	assert.Equal(t, "u1", c.UserID())
	assert.Equal(t, 2, store.Len(core.CollectionNotes))
	assert.Equal(t, 1, store.Len(core.CollectionTabs))

	s := c.Tabs().Snapshot()
	assert.Equal(t, "u1", s.UserID)
	items := s.Tabs[core.DefaultTabID].Items
	assert.Equal(t, []string{"Buy milk", "Call mom"}, titles(items))
	for _, item := range items {
		assert.False(t, item.ID.IsPending(), "migrated notes carry store ids")
	}

	remoteColls := remote.Open(store)
	order, err := remoteColls.Orders.Get(ctx, core.TabKey("u1", core.DefaultTabID))
	require.NoError(t, err)
	first, _ := items[0].ID.Value()
	assert.Equal(t, first, order.Data.Order[0])

	var identity core.Identity
	_, err = core.GetJSON(ctx, local, core.IdentityKey, &identity)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.UserID)
}

func TestCoordinator_LoginAdoptsRemoteData(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	remoteColls := remote.Open(store)

	a, err := remoteColls.Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "0", TabName: "stale", NoteTitle: "a"})
	require.NoError(t, err)
	b, err := remoteColls.Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "0", NoteTitle: "b", Description: "d"})
	require.NoError(t, err)
	_, err = remoteColls.Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "5", TabName: "Work", NoteTitle: "w"})
	require.NoError(t, err)
	_, err = remoteColls.Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "7", NoteTitle: "nameless"})
	require.NoError(t, err)
	_, err = remoteColls.Notes.Create(ctx, core.NoteDocument{UserID: "u2", TabID: "0", NoteTitle: "someone else"})
	require.NoError(t, err)
	require.NoError(t, remoteColls.Tabs.Upsert(ctx, core.TabKey("u1", "0"), core.TabDocument{UserID: "u1", TabID: "0", Name: "Home"}))
	require.NoError(t, remoteColls.Tabs.Upsert(ctx, core.TabKey("u1", "9"), core.TabDocument{UserID: "u1", TabID: "9", Name: "Empty"}))
	require.NoError(t, remoteColls.Orders.Upsert(ctx, core.TabKey("u1", "0"), core.OrderDocument{UserID: "u1", TabID: "0", Order: []string{b, a}}))

	local := memory.NewLocalStore()
	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "local only")
	require.NoError(t, err)

	result, err := c.Login(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, result.Migrated)
	assert.Equal(t, 4, result.Notes)

	s := c.Tabs().Snapshot()
	assert.Equal(t, []string{"0", "5", "7", "9"}, s.Tabs.IDs())
	assert.Equal(t, "Home", s.Tabs["0"].Name)
	assert.Equal(t, []string{"b", "a"}, titles(s.Tabs["0"].Items))
	assert.Equal(t, "d", s.Tabs["0"].Items[0].Description)
	assert.Equal(t, "Work", s.Tabs["5"].Name)
	assert.Equal(t, core.UnnamedTab, s.Tabs["7"].Name)
	assert.Empty(t, s.Tabs["9"].Items)

	c.Tabs().Wait()
	assert.Equal(t, 5, store.Len(core.CollectionNotes), "the local note is discarded, not migrated")

	// local data is left as it was before login
	saved := readTabData(t, local)
	assert.Equal(t, []string{"local only"}, titles(saved[core.DefaultTabID].Items))
}

func TestCoordinator_LoginGuards(t *testing.T) {
	ctx := context.Background()

	c := newCoordinator(t, memory.NewLocalStore(), nil)
	require.NoError(t, c.Start(ctx))
	_, err := c.Login(ctx, "u1")
	assert.ErrorIs(t, err, core.ErrNoRemote)

	c = newCoordinator(t, memory.NewLocalStore(), memory.NewDocumentStore())
	_, err = c.Login(ctx, "")
	assert.ErrorIs(t, err, core.ErrAnonymous)
}

type unreachableStore struct {
	*memory.DocumentStore
}

var errUnreachable = errors.New("unreachable")

func (unreachableStore) Query(ctx context.Context, collection, field string, value any) ([]core.Document, error) {
	return nil, errUnreachable
}

func TestCoordinator_LoginReadFailureStaysAnonymous(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	c := newCoordinator(t, local, unreachableStore{memory.NewDocumentStore()})
	require.NoError(t, c.Start(ctx))
	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "keep me")
	require.NoError(t, err)

	_, err = c.Login(ctx, "u1")
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, coordinator.Anonymous, c.Phase())
	assert.False(t, c.Tabs().Snapshot().Authenticated())

	// still writing through
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "and me")
	require.NoError(t, err)
	assert.Len(t, readTabData(t, local)[core.DefaultTabID].Items, 2)
}

func TestCoordinator_LogoutRestoresLocalState(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	store := memory.NewDocumentStore()
	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))

	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "before login")
	require.NoError(t, err)
	_, err = c.Login(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, c.Review().SetEnabled(ctx, "u1", true))

	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "while signed in")
	require.NoError(t, err)
	c.Tabs().Wait()
	c.Review().Wait()

	// signed-in edits stay out of the local store
	assert.Len(t, readTabData(t, local)[core.DefaultTabID].Items, 1)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, coordinator.Anonymous, c.Phase())
	assert.Empty(t, c.UserID())
	assert.False(t, c.Review().Enabled())

	s := c.Tabs().Snapshot()
	assert.False(t, s.Authenticated())
	assert.Equal(t, []string{"before login"}, titles(s.Tabs[core.DefaultTabID].Items))

	var identity core.Identity
	_, err = core.GetJSON(ctx, local, core.IdentityKey, &identity)
	require.NoError(t, err)
	assert.True(t, identity.Anonymous())
}

func TestCoordinator_LogoutLeavesLocalStoreUntouched(t *testing.T) {
	ctx := context.Background()
	local := memory.NewLocalStore()
	c := newCoordinator(t, local, memory.NewDocumentStore())
	require.NoError(t, c.Start(ctx))

	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "local")
	require.NoError(t, err)
	_, err = c.Login(ctx, "u1")
	require.NoError(t, err)
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "secret remote")
	require.NoError(t, err)
	c.Tabs().Wait()

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, []string{"local"}, titles(readTabData(t, local)[core.DefaultTabID].Items))

	// anonymous edits are written through again after the reset
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "after logout")
	require.NoError(t, err)
	assert.Equal(t, []string{"after logout", "local"}, titles(readTabData(t, local)[core.DefaultTabID].Items))
}

func TestCoordinator_LoginAsAnotherUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	collections := remote.Open(store)
	_, err := collections.Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "0", TabName: "Home", NoteTitle: "u1 private"})
	require.NoError(t, err)

	local := memory.NewLocalStore()
	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))
	_, err = c.Tabs().AddNote(ctx, core.DefaultTabID, "mine")
	require.NoError(t, err)

	_, err = c.Login(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u1 private"}, titles(c.Tabs().Snapshot().Tabs["0"].Items))

	result, err := c.Login(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, result.Migrated)
	assert.Equal(t, 1, result.Notes)
	assert.Equal(t, "u2", c.UserID())
	assert.Equal(t, []string{"mine"}, titles(c.Tabs().Snapshot().Tabs[core.DefaultTabID].Items))

	u2Notes, err := collections.Notes.Query(ctx, core.FieldUserID, "u2")
	require.NoError(t, err)
	require.Len(t, u2Notes, 1)
	assert.Equal(t, "mine", u2Notes[0].Data.NoteTitle)

	assert.Equal(t, []string{"mine"}, titles(readTabData(t, local)[core.DefaultTabID].Items))
}

func TestCoordinator_LoginWithOnlyOrderRecordsAdoptsRemote(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	require.NoError(t, remote.Open(store).Orders.Upsert(ctx, core.TabKey("u1", "0"),
		core.OrderDocument{UserID: "u1", TabID: "0", Order: []string{"gone"}}))

	c := newCoordinator(t, memory.NewLocalStore(), store)
	require.NoError(t, c.Start(ctx))
	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "mine")
	require.NoError(t, err)

	result, err := c.Login(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, result.Migrated)
	assert.Zero(t, store.Len(core.CollectionNotes))
	assert.Empty(t, c.Tabs().Snapshot().Tabs[core.DefaultTabID].Items)
}

func TestCoordinator_StartResumesIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	_, err := remote.Open(store).Notes.Create(ctx, core.NoteDocument{UserID: "u1", TabID: "0", TabName: "Home", NoteTitle: "remote"})
	require.NoError(t, err)

	local := memory.NewLocalStore()
	require.NoError(t, core.SetJSON(ctx, local, core.IdentityKey, core.Identity{UserID: "u1"}))

	c := newCoordinator(t, local, store)
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, coordinator.Authenticated, c.Phase())
	assert.Equal(t, []string{"remote"}, titles(c.Tabs().Snapshot().Tabs["0"].Items))
}

func TestCoordinator_FollowReloadsExternalChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := filepath.Join(t.TempDir(), "data")
	local := fs.NewStore(fs.Config{Path: dir, Debounce: 10 * time.Millisecond})
	require.NoError(t, local.Initialize(ctx))

	c := newCoordinator(t, local, nil)
	require.NoError(t, c.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- c.Follow(ctx) }()

	external := core.TabCollection{
		"0": {Name: "Home", Items: []core.Note{core.NewNote("from elsewhere")}},
	}
	data, err := json.Marshal(external)
	require.NoError(t, err)
	other := fs.NewStore(fs.Config{Path: dir})

	require.Eventually(t, func() bool {
		// rewrite until the watcher is up and the change is picked up
		_ = other.Set(ctx, core.TabDataKey, data)
		items := c.Tabs().Snapshot().Tabs["0"].Items
		return len(items) == 1 && items[0].Title == "from elsewhere"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestCoordinator_FollowRequiresWatchableStore(t *testing.T) {
	c := newCoordinator(t, memory.NewLocalStore(), nil)
	assert.Error(t, c.Follow(context.Background()))
}

func TestCoordinator_Introspection(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, memory.NewLocalStore(), memory.NewDocumentStore())
	require.NoError(t, c.Start(ctx))
	_, err := c.Tabs().AddNote(ctx, core.DefaultTabID, "x")
	require.NoError(t, err)

	state, ok := c.State().(coordinator.CoordinatorState)
	require.True(t, ok)
	assert.Equal(t, "anonymous", state.Phase)
	assert.Equal(t, 1, state.LocalWrites)
	assert.Nil(t, state.LastSync)

	_, err = c.Login(ctx, "u1")
	require.NoError(t, err)
	state = c.State().(coordinator.CoordinatorState)
	assert.Equal(t, "authenticated", state.Phase)
	assert.Equal(t, "u1", state.UserID)
	assert.NotNil(t, state.LastSync)
	assert.Equal(t, "sync-coordinator", c.ComponentType())
}
