// Package ordering keeps the display order of notes apart from the order the
// remote store returns them in.
package ordering

import (
	"context"
	"fmt"

	"github.com/aretw0/tabnotes/pkg/core"
	"github.com/aretw0/tabnotes/pkg/typed"
)

// Records maps a tab id to its ordered note identifiers.
type Records map[string][]string

// Apply re-sequences every tab that has a record: notes named by the record
// come first, in record order, followed by the remaining notes in their
// existing relative order. Record entries without a matching note are
// dropped. Inputs are not modified.
//
// Apply is a pure function, so it may be called again whenever either the
// notes or the records change, in any order.
func Apply(tabs core.TabCollection, records Records) core.TabCollection {
	out := tabs.Clone()
	for tabID, order := range records {
		tab, ok := out[tabID]
		if !ok {
			continue
		}
		tab.Items = applyToItems(tab.Items, order)
		out[tabID] = tab
	}
	return out
}

func applyToItems(items []core.Note, order []string) []core.Note {
	used := make([]bool, len(items))
	sorted := make([]core.Note, 0, len(items))

	for _, want := range order {
		for i, item := range items {
			if used[i] {
				continue
			}
			if id, ok := item.ID.Value(); ok && id == want {
				used[i] = true
				sorted = append(sorted, item)
				break
			}
		}
	}
	for i, item := range items {
		if !used[i] {
			sorted = append(sorted, item)
		}
	}
	return sorted
}

// OrderOf returns the persisted identifiers of items, in order.
// Pending notes have no identifier yet and are skipped.
func OrderOf(items []core.Note) []string {
	order := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.ID.Value(); ok {
			order = append(order, id)
		}
	}
	return order
}

// Engine persists OrderRecords in the note_order collection.
type Engine struct {
	orders *typed.Collection[core.OrderDocument]
}

// NewEngine creates an Engine over the given collection.
func NewEngine(orders *typed.Collection[core.OrderDocument]) *Engine {
	return &Engine{orders: orders}
}

// Record upserts the order of a tab. It is a no-op for anonymous users.
func (e *Engine) Record(ctx context.Context, userID, tabID string, items []core.Note) error {
	if userID == "" || e == nil {
		return nil
	}
	doc := core.OrderDocument{
		UserID: userID,
		TabID:  tabID,
		Order:  OrderOf(items),
	}
	if err := e.orders.Upsert(ctx, core.TabKey(userID, tabID), doc); err != nil {
		return fmt.Errorf("record order of tab %s: %w", tabID, err)
	}
	return nil
}

// Fetch returns every OrderRecord of a user keyed by tab id.
func (e *Engine) Fetch(ctx context.Context, userID string) (Records, error) {
	docs, err := e.orders.Query(ctx, core.FieldUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	records := make(Records, len(docs))
	for _, d := range docs {
		records[d.Data.TabID] = d.Data.Order
	}
	return records, nil
}

// Forget deletes the OrderRecord of a tab.
func (e *Engine) Forget(ctx context.Context, userID, tabID string) error {
	if userID == "" || e == nil {
		return nil
	}
	if err := e.orders.Delete(ctx, core.TabKey(userID, tabID)); err != nil {
		return fmt.Errorf("forget order of tab %s: %w", tabID, err)
	}
	return nil
}
