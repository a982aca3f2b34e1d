package tabs

import (
	"context"
	"strings"

	"github.com/aretw0/tabnotes/pkg/core"
)

// AddTab creates an empty tab named "New tab", in rename mode, and makes it
// current. Nothing is written remotely until the tab is renamed.
func (m *Manager) AddTab() string {
	var id string
	m.update(func(s core.State) (core.State, bool) {
		for {
			id = m.newTabID()
			if _, taken := s.Tabs[id]; !taken && id != core.PlaceholderTabID {
				break
			}
		}
		s.Tabs = s.Tabs.Clone()
		s.Tabs[id] = core.Tab{Name: core.NewTabName, Items: []core.Note{}, NameEditable: true}
		s.CurrentTab = id
		return s, true
	})
	return id
}

// BeginRename switches a tab into rename mode. Renaming the placeholder tab
// creates a real tab first. It returns the id of the tab being renamed.
func (m *Manager) BeginRename(tabID string) (string, error) {
	if tabID == core.PlaceholderTabID {
		return m.AddTab(), nil
	}
	var err error
	m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if tab.NameEditable {
			return s, false
		}
		tab.NameEditable = true
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	return tabID, err
}

// DraftTabName changes the displayed name while editing, without saving.
func (m *Manager) DraftTabName(tabID, name string) error {
	var err error
	m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		tab.Name = name
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	return err
}

// RenameTab commits a tab name and leaves rename mode. A blank name keeps
// the previous one. For signed-in users the tab record is upserted.
func (m *Manager) RenameTab(ctx context.Context, tabID, name string) error {
	name = strings.TrimSpace(name)

	var err error
	var saved string
	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			err = core.ErrUnknownTab
			return s, false
		}
		if name != "" {
			tab.Name = name
		}
		tab.NameEditable = false
		saved = tab.Name
		s.Tabs = s.Tabs.Clone()
		s.Tabs[tabID] = tab
		return s, true
	})
	if !changed {
		return err
	}
	if name == "" || !m.authenticated(s) {
		return nil
	}

	userID := s.UserID
	m.runner.Go(ctx, "upsert tab", func(ctx context.Context) error {
		return m.remote.Tabs.Upsert(ctx, core.TabKey(userID, tabID), core.TabDocument{
			UserID: userID,
			TabID:  tabID,
			Name:   saved,
		})
	}, "user", userID, "tab", tabID)
	return nil
}

// DeleteTab removes a tab with its notes. When it was the last tab, the
// empty default tab is recreated.
func (m *Manager) DeleteTab(ctx context.Context, tabID string) error {
	var removed core.Tab
	s, changed := m.update(func(s core.State) (core.State, bool) {
		tab, ok := s.Tabs[tabID]
		if !ok {
			return s, false
		}
		removed = tab
		return withoutTab(s, tabID), true
	})
	if !changed {
		return core.ErrUnknownTab
	}
	if m.authenticated(s) {
		m.forgetTab(ctx, s.UserID, tabID, removed.Items)
	}
	return nil
}

// withoutTab removes a tab and picks the next current tab: the recreated
// default tab if none remain, otherwise the first remaining one.
func withoutTab(s core.State, tabID string) core.State {
	tabs := s.Tabs.Clone()
	delete(tabs, tabID)
	if len(tabs) == 0 {
		s.Tabs = core.DefaultCollection(nil)
		s.CurrentTab = core.DefaultTabID
		return s
	}
	s.Tabs = tabs
	s.CurrentTab = tabs.IDs()[0]
	return s
}

// forgetTab deletes the remote records of a removed tab: its tab document,
// its order record and the persisted notes it still held.
func (m *Manager) forgetTab(ctx context.Context, userID, tabID string, items []core.Note) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.ID.Value(); ok {
			ids = append(ids, id)
		}
	}
	m.runner.Go(ctx, "delete tab", func(ctx context.Context) error {
		if err := m.remote.Tabs.Delete(ctx, core.TabKey(userID, tabID)); err != nil {
			return err
		}
		if err := m.orders.Forget(ctx, userID, tabID); err != nil {
			return err
		}
		for _, id := range ids {
			if err := m.remote.Notes.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}, "user", userID, "tab", tabID)
}
