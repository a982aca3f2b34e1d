package typed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tabnotes/pkg/adapters/memory"
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/typed"
)

type profile struct {
	UserID string   `json:"userId"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags"`
}

func TestCollection_RoundTrip(t *testing.T) {
	ctx := context.Background()
	profiles := typed.NewCollection[profile](memory.NewDocumentStore(), "profiles")
	assert.Equal(t, "profiles", profiles.Name())

	id, err := profiles.Create(ctx, profile{UserID: "u1", Name: "Alice", Tags: []string{"a"}})
	require.NoError(t, err)
	_, err = profiles.Create(ctx, profile{UserID: "u2", Name: "Bob"})
	require.NoError(t, err)

	got, err := profiles.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alice", got.Data.Name)
	assert.Equal(t, []string{"a"}, got.Data.Tags)

	mine, err := profiles.Query(ctx, core.FieldUserID, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].ID)
}

func TestCollection_UpdateWithPartialPatch(t *testing.T) {
	ctx := context.Background()
	profiles := typed.NewCollection[profile](memory.NewDocumentStore(), "profiles")

	id, err := profiles.Create(ctx, profile{UserID: "u1", Name: "Alice"})
	require.NoError(t, err)

	require.NoError(t, profiles.Update(ctx, id, map[string]any{"name": "Alicia"}))
	got, err := profiles.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Data.Name)
	assert.Equal(t, "u1", got.Data.UserID, "fields outside the patch are kept")

	err = profiles.Update(ctx, "missing", core.Fields{"name": "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, profiles.Delete(ctx, id))
	_, err = profiles.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCollection_Upsert(t *testing.T) {
	ctx := context.Background()
	profiles := typed.NewCollection[profile](memory.NewDocumentStore(), "profiles")

	require.NoError(t, profiles.Upsert(ctx, "u1", profile{UserID: "u1", Name: "Alice"}))
	require.NoError(t, profiles.Upsert(ctx, "u1", profile{UserID: "u1", Name: "Alice B"}))

	got, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Data.Name)
}

func TestToFields(t *testing.T) {
	fields, err := typed.ToFields(core.TabDocument{UserID: "u1", TabID: "0", Name: "Home"})
	require.NoError(t, err)
	assert.Equal(t, core.Fields{"userId": "u1", "tabId": "0", "name": "Home"}, fields)

	in := core.Fields{"x": 1}
	out, err := typed.ToFields(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = typed.ToFields(make(chan int))
	assert.Error(t, err)
}
