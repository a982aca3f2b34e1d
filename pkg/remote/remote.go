// Package remote binds the logical collections of the cloud document store.
package remote

import (
	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/typed"
)

// Collections groups the typed views over the four remote collections.
type Collections struct {
	Store  core.DocumentStore
	Notes  *typed.Collection[core.NoteDocument]
	Tabs   *typed.Collection[core.TabDocument]
	Orders *typed.Collection[core.OrderDocument]
	Review *typed.Collection[core.ReviewDocument]
}

// Open binds the collections of store. It returns nil for a nil store,
// which callers treat as "no remote configured".
func Open(store core.DocumentStore) *Collections {
	if store == nil {
		return nil
	}
	return &Collections{
		Store:  store,
		Notes:  typed.NewCollection[core.NoteDocument](store, core.CollectionNotes),
		Tabs:   typed.NewCollection[core.TabDocument](store, core.CollectionTabs),
		Orders: typed.NewCollection[core.OrderDocument](store, core.CollectionOrders),
		Review: typed.NewCollection[core.ReviewDocument](store, core.CollectionReview),
	}
}
