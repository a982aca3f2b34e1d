package ordering_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tabnotes/pkg/adapters/memory"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/ordering"
	"github.com/aretw0/tabnotes/pkg/remote"
)

func note(id string) core.Note {
	return core.Note{Title: "t-" + id, ID: core.PersistedID(id)}
}

func titles(items []core.Note) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.Title
	}
	return out
}

func TestApply_ReordersAndAppendsUnknown(t *testing.T) {
	pending := core.NewNote("draft")
	tabs := core.TabCollection{
		"0": {Name: "Home", Items: []core.Note{note("a"), note("b"), pending, note("c"), note("d")}},
		"1": {Name: "Work", Items: []core.Note{note("x"), note("y")}},
	}
	records := ordering.Records{
		"0":    {"c", "gone", "a"},
		"nope": {"z"},
	}

	got := ordering.Apply(tabs, records)

	assert.Equal(t, []string{"t-c", "t-a", "t-b", "draft", "t-d"}, titles(got["0"].Items))
	assert.Equal(t, []string{"t-x", "t-y"}, titles(got["1"].Items), "tab without record keeps natural order")
	assert.NotContains(t, got, "nope")

	// inputs untouched
	assert.Equal(t, []string{"t-a", "t-b", "draft", "t-c", "t-d"}, titles(tabs["0"].Items))
}

func TestApply_Idempotent(t *testing.T) {
	tabs := core.TabCollection{
		"0": {Items: []core.Note{note("a"), note("b"), note("c")}},
	}
	records := ordering.Records{"0": {"b", "c"}}

	once := ordering.Apply(tabs, records)
	twice := ordering.Apply(once, records)
	assert.Equal(t, once, twice)
}

func TestApply_DuplicateRecordEntriesDoNotDuplicateNotes(t *testing.T) {
	tabs := core.TabCollection{"0": {Items: []core.Note{note("a"), note("b")}}}
	got := ordering.Apply(tabs, ordering.Records{"0": {"b", "b", "a"}})
	assert.Equal(t, []string{"t-b", "t-a"}, titles(got["0"].Items))
}

func TestApply_ArrivalOrderIndependent(t *testing.T) {
	records := ordering.Records{"0": {"c", "a", "b"}}
	fetched := []core.Note{note("b"), note("a"), note("c")}

	// notes first, then order
	notesFirst := ordering.Apply(core.TabCollection{"0": {Items: fetched}}, records)

	// order first (applied to an empty state), then notes arrive and order is re-applied
	empty := ordering.Apply(core.TabCollection{}, records)
	empty["0"] = core.Tab{Items: fetched}
	orderFirst := ordering.Apply(empty, records)

	assert.Equal(t, notesFirst, orderFirst)
	assert.Equal(t, []string{"t-c", "t-a", "t-b"}, titles(orderFirst["0"].Items))
}

func TestOrderOf_SkipsPending(t *testing.T) {
	items := []core.Note{note("a"), core.NewNote("p"), note("b")}
	assert.Equal(t, []string{"a", "b"}, ordering.OrderOf(items))
}

func TestEngine_RecordFetchForget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	engine := ordering.NewEngine(remote.Open(store).Orders)

	require.NoError(t, engine.Record(ctx, "", "0", []core.Note{note("a")}))
	assert.Equal(t, 0, store.Len(core.CollectionOrders), "anonymous record is a no-op")

	require.NoError(t, engine.Record(ctx, "u1", "0", []core.Note{note("a"), note("b")}))
	require.NoError(t, engine.Record(ctx, "u1", "0", []core.Note{note("b"), note("a")}))
	require.NoError(t, engine.Record(ctx, "u1", "1", []core.Note{note("x")}))
	require.NoError(t, engine.Record(ctx, "u2", "0", []core.Note{note("q")}))

	doc, err := store.Get(ctx, core.CollectionOrders, "u1_0")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Fields["userId"])

	records, err := engine.Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ordering.Records{"0": {"b", "a"}, "1": {"x"}}, records)

	require.NoError(t, engine.Forget(ctx, "u1", "0"))
	records, err = engine.Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ordering.Records{"1": {"x"}}, records)
}
