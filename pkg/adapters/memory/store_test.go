package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tabnotes/pkg/adapters/memory"
	"github.com/aretw0/tabnotes/pkg/core"
)

func TestDocumentStore_QueryInCreationOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()

	a, err := store.Create(ctx, core.CollectionNotes, core.Fields{"userId": "u1", "noteTitle": "a"})
	require.NoError(t, err)
	_, err = store.Create(ctx, core.CollectionNotes, core.Fields{"userId": "u2", "noteTitle": "x"})
	require.NoError(t, err)
	b, err := store.Create(ctx, core.CollectionNotes, core.Fields{"userId": "u1", "noteTitle": "b"})
	require.NoError(t, err)

	docs, err := store.Query(ctx, core.CollectionNotes, core.FieldUserID, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a, docs[0].ID)
	assert.Equal(t, b, docs[1].ID)

	docs, err = store.Query(ctx, "unknown", core.FieldUserID, "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentStore_UpdateUpsertDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()

	id, err := store.Create(ctx, core.CollectionNotes, core.Fields{"noteTitle": "a", "description": ""})
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, core.CollectionNotes, id, core.Fields{"description": "d"}))

	doc, err := store.Get(ctx, core.CollectionNotes, id)
	require.NoError(t, err)
	assert.Equal(t, core.Fields{"noteTitle": "a", "description": "d"}, doc.Fields)

	assert.ErrorIs(t, store.Update(ctx, core.CollectionNotes, "nope", core.Fields{"x": 1}), core.ErrNotFound)

	key := core.TabKey("u1", "0")
	require.NoError(t, store.Upsert(ctx, core.CollectionOrders, key, core.Fields{"userId": "u1", "order": []string{"a", "b"}}))
	require.NoError(t, store.Upsert(ctx, core.CollectionOrders, key, core.Fields{"order": []string{"b"}}))
	doc, err = store.Get(ctx, core.CollectionOrders, key)
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, doc.Fields["order"])
	assert.Equal(t, "u1", doc.Fields["userId"])

	require.NoError(t, store.Delete(ctx, core.CollectionNotes, id))
	require.NoError(t, store.Delete(ctx, core.CollectionNotes, id), "deleting twice is not an error")
	_, err = store.Get(ctx, core.CollectionNotes, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Zero(t, store.Len(core.CollectionNotes))
}

func TestDocumentStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	require.NoError(t, store.Upsert(ctx, core.CollectionTabs, "k", core.Fields{"name": "Home"}))

	doc, err := store.Get(ctx, core.CollectionTabs, "k")
	require.NoError(t, err)
	doc.Fields["name"] = "changed"

	doc, err = store.Get(ctx, core.CollectionTabs, "k")
	require.NoError(t, err)
	assert.Equal(t, "Home", doc.Fields["name"])
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocalStore()

	got, err := store.Get(ctx, core.TabDataKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	value := []byte(`{"0":{"name":"Home","items":[]}}`)
	require.NoError(t, store.Set(ctx, core.TabDataKey, value))
	value[0] = 'x'

	got, err = store.Get(ctx, core.TabDataKey)
	require.NoError(t, err)
	assert.Equal(t, `{"0":{"name":"Home","items":[]}}`, string(got))

	assert.ErrorIs(t, store.Set(ctx, "", value), core.ErrInvalidKey)
}
