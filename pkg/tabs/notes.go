package tabs

import (
	"context"

	"github.com/aretw0/tabnotes/pkg/core"
)

// AddNote inserts a new note with the given title at the top of a tab.
// For signed-in users the note is created remotely in the background and
// its pending id replaced once the store assigns one.
func (m *Manager) AddNote(ctx context.Context, tabID, title string) (core.Note, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return core.Note{}, err
	}
	note := core.NewNote(title)

	var tabName string
	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			return s, false
		}
		items := make([]core.Note, 0, len(tab.Items)+1)
		items = append(items, note)
		tab.Items = append(items, tab.Items...)
		tabName = tab.Name
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	if !changed {
		return core.Note{}, core.ErrUnknownTab
	}

	if m.authenticated(s) {
		m.createRemote(ctx, s.UserID, tabID, tabName, note)
	}
	return note, nil
}

func (m *Manager) createRemote(ctx context.Context, userID, tabID, tabName string, note core.Note) {
	m.runner.Go(ctx, "create note", func(ctx context.Context) error {
		id, err := m.remote.Notes.Create(ctx, core.NoteDocument{
			UserID:    userID,
			TabID:     tabID,
			TabName:   tabName,
			NoteTitle: note.Title,
		})
		if err != nil {
			return err
		}
		if m.Snapshot().UserID != userID {
			// Identity changed while the write was in flight; the remote note is
			// still valid for its owner.
			return nil
		}

		currentTab, ok := m.ResolvePending(note.ID, id)
		if !ok {
			m.logger.Debug("note deleted before creation finished, removing remote copy", "note", id)
			return m.remote.Notes.Delete(ctx, id)
		}

		snap := m.Snapshot()
		tab := snap.Tabs[currentTab]
		if current, found := findNote(tab.Items, core.PersistedID(id)); found &&
			(currentTab != tabID || current.Description != "") {
			if err := m.remote.Notes.Update(ctx, id, map[string]any{
				"tabId":       currentTab,
				"tabName":     tab.Name,
				"description": current.Description,
			}); err != nil {
				return err
			}
		}
		return m.orders.Record(ctx, userID, currentTab, tab.Items)
	}, "user", userID, "tab", tabID)
}

// UpdateDescription replaces the description of a note in memory only.
// Use SaveDescription to persist it.
func (m *Manager) UpdateDescription(tabID string, index int, text string) error {
	_, _, err := m.setDescription(tabID, index, text)
	return err
}

// SaveDescription sets the description of a note and pushes it to the
// remote store.
func (m *Manager) SaveDescription(ctx context.Context, tabID string, index int, text string) error {
	s, note, err := m.setDescription(tabID, index, text)
	if err != nil {
		return err
	}
	if !m.authenticated(s) {
		return nil
	}
	id, ok := note.ID.Value()
	if !ok {
		// createRemote pushes the description once the id is known.
		return nil
	}
	m.runner.Go(ctx, "save description", func(ctx context.Context) error {
		return m.remote.Notes.Update(ctx, id, map[string]any{"description": text})
	}, "user", s.UserID, "note", id)
	return nil
}

func (m *Manager) setDescription(tabID string, index int, text string) (core.State, core.Note, error) {
	var err error
	var note core.Note
	s, _ := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if index < 0 || index >= len(tab.Items) {
			err = core.ErrIndexOutOfRange
			return s, false
		}
		items := cloneItems(tab.Items)
		items[index].Description = text
		note = items[index]
		tab.Items = items
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	return s, note, err
}

// DeleteNote removes the note at index. Removing the last note of a tab
// deletes the tab.
func (m *Manager) DeleteNote(ctx context.Context, tabID string, index int) error {
	var err error
	var removed core.Note
	var remaining []core.Note
	var tabGone bool

	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if index < 0 || index >= len(tab.Items) {
			err = core.ErrIndexOutOfRange
			return s, false
		}
		removed = tab.Items[index]
		remaining = make([]core.Note, 0, len(tab.Items)-1)
		remaining = append(remaining, tab.Items[:index]...)
		remaining = append(remaining, tab.Items[index+1:]...)

		if len(remaining) == 0 {
			tabGone = true
			return withoutTab(s, tabID), true
		}
		tab.Items = remaining
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	if !changed {
		return err
	}
	if !m.authenticated(s) {
		return nil
	}

	if tabGone {
		m.forgetTab(ctx, s.UserID, tabID, nil)
	} else {
		m.recordOrder(ctx, s.UserID, tabID, remaining)
	}
	if id, ok := removed.ID.Value(); ok {
		m.runner.Go(ctx, "delete note", func(ctx context.Context) error {
			return m.remote.Notes.Delete(ctx, id)
		}, "user", s.UserID, "note", id)
	}
	return nil
}

// MoveNote removes the note at sourceIndex from one tab and appends it to
// another in a single update. Moving within the same tab relocates the
// note to the end.
func (m *Manager) MoveNote(ctx context.Context, sourceTabID string, sourceIndex int, destinationTabID string) error {
	if sourceTabID == destinationTabID {
		tab, ok := m.Snapshot().Tabs[sourceTabID]
		if !ok {
			return core.ErrUnknownTab
		}
		return m.ReorderNotes(ctx, sourceTabID, sourceIndex, len(tab.Items)-1)
	}

	var err error
	var moved core.Note
	var srcItems, dstItems []core.Note
	var dstName string

	s, changed := m.update(func(s core.State) (core.State, bool) {
		src, ok := s.Tabs[sourceTabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		dst, ok := s.Tabs[destinationTabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if sourceIndex < 0 || sourceIndex >= len(src.Items) {
			err = core.ErrIndexOutOfRange
			return s, false
		}
		moved = src.Items[sourceIndex]

		srcItems = make([]core.Note, 0, len(src.Items)-1)
		srcItems = append(srcItems, src.Items[:sourceIndex]...)
		srcItems = append(srcItems, src.Items[sourceIndex+1:]...)

		dstItems = make([]core.Note, 0, len(dst.Items)+1)
		dstItems = append(dstItems, dst.Items...)
		dstItems = append(dstItems, moved)

		src.Items = srcItems
		dst.Items = dstItems
		dstName = dst.Name
		s.Tabs = s.Tabs.Clone()
		s.Tabs[sourceTabID] = src
		s.Tabs[destinationTabID] = dst
		return s, true
	})
	if !changed {
		return err
	}
	if !m.authenticated(s) {
		return nil
	}

	userID := s.UserID
	m.runner.Go(ctx, "move note", func(ctx context.Context) error {
		if id, ok := moved.ID.Value(); ok {
			if err := m.remote.Notes.Update(ctx, id, map[string]any{
				"tabId":   destinationTabID,
				"tabName": dstName,
			}); err != nil {
				return err
			}
		}
		if err := m.orders.Record(ctx, userID, sourceTabID, srcItems); err != nil {
			return err
		}
		return m.orders.Record(ctx, userID, destinationTabID, dstItems)
	}, "user", userID, "from", sourceTabID, "to", destinationTabID)
	return nil
}

// ReorderNotes moves the note at fromIndex to toIndex within a tab.
func (m *Manager) ReorderNotes(ctx context.Context, tabID string, fromIndex, toIndex int) error {
	var err error
	var items []core.Note

	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		n := len(tab.Items)
		if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
			err = core.ErrIndexOutOfRange
			return s, false
		}
		if fromIndex == toIndex {
			return s, false
		}
		items = relocate(tab.Items, fromIndex, toIndex)
		tab.Items = items
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	if !changed {
		return err
	}
	if m.authenticated(s) {
		m.recordOrder(ctx, s.UserID, tabID, items)
	}
	return nil
}

// SetItems replaces the items of a tab with a permutation produced by the
// caller (e.g. a drag-and-drop list) and records the new order.
func (m *Manager) SetItems(ctx context.Context, tabID string, items []core.Note) error {
	var err error
	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		tab.Items = cloneItems(items)
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	if !changed {
		return err
	}
	if m.authenticated(s) {
		m.recordOrder(ctx, s.UserID, tabID, s.Tabs[tabID].Items)
	}
	return nil
}

func relocate(items []core.Note, from, to int) []core.Note {
	out := make([]core.Note, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)

	moved := items[from]
	out = append(out, core.Note{})
	copy(out[to+1:], out[to:])
	out[to] = moved
	return out
}

func findNote(items []core.Note, id core.NoteID) (core.Note, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return core.Note{}, false
}
