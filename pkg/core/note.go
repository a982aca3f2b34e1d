package core

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

const (
	// DefaultTabID is the distinguished tab that always exists when nothing else does.
	DefaultTabID = "0"
	// DefaultTabName is the display name of the default tab.
	DefaultTabName = "Home"
	// NewTabName is the name given to tabs created through AddTab.
	NewTabName = "New tab"
	// PlaceholderTabID is the synthetic "new tab" entry rendered after the real tabs.
	PlaceholderTabID = "<placeholder>"
	// UnnamedTab is used when remote notes reference a tab without a name.
	UnnamedTab = "no name"
)

// NoteID identifies a note. It is either Pending (not yet assigned by the
// remote store) or Persisted (carrying the store-assigned identifier).
// The zero value is an invalid pending id; use NewPendingID.
type NoteID struct {
	value     string
	persisted bool
}

// NewPendingID returns a pending id with a unique token.
// Two pending ids are equal only if they come from the same call.
func NewPendingID() NoteID {
	return NoteID{value: uuid.NewString()}
}

// PersistedID wraps an identifier assigned by the remote store.
func PersistedID(id string) NoteID {
	return NoteID{value: id, persisted: true}
}

// Value returns the store-assigned identifier and true, or "" and false
// for a pending id.
func (id NoteID) Value() (string, bool) {
	if !id.persisted {
		return "", false
	}
	return id.value, true
}

// IsPending reports whether the id is still awaiting remote assignment.
func (id NoteID) IsPending() bool {
	return !id.persisted
}

func (id NoteID) String() string {
	if id.persisted {
		return id.value
	}
	return "pending:" + id.value
}

// MarshalJSON encodes a persisted id as its string and a pending id as null.
func (id NoteID) MarshalJSON() ([]byte, error) {
	if !id.persisted {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes null into a fresh pending id.
func (id *NoteID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = NewPendingID()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*id = NewPendingID()
		return nil
	}
	*id = PersistedID(s)
	return nil
}

// Note is the leaf content unit. It never exists outside a Tab.
type Note struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ID          NoteID `json:"itemId"`
}

// NewNote builds a note with an empty description and a pending id.
func NewNote(title string) Note {
	return Note{Title: title, ID: NewPendingID()}
}

// Tab is a named, ordered collection of notes.
type Tab struct {
	Name         string `json:"name"`
	Items        []Note `json:"items"`
	NameEditable bool   `json:"tabNameEditable"`
}

// TabCollection maps tab ids to tabs.
// Values are treated as immutable snapshots: every change builds a new map.
type TabCollection map[string]Tab

// DefaultCollection returns a collection holding only the default tab.
func DefaultCollection(items []Note) TabCollection {
	if items == nil {
		items = []Note{}
	}
	return TabCollection{
		DefaultTabID: {Name: DefaultTabName, Items: items},
	}
}

// Clone returns a shallow copy. Tabs are values and their item slices are
// never mutated in place, so sharing them is safe.
func (c TabCollection) Clone() TabCollection {
	out := make(TabCollection, len(c))
	for id, tab := range c {
		out[id] = tab
	}
	return out
}

// IDs returns the tab ids in display order: integer-like ids ascending,
// then the rest lexicographically.
func (c TabCollection) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, errI := strconv.ParseUint(ids[i], 10, 64)
		nj, errJ := strconv.ParseUint(ids[j], 10, 64)
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}

// Count returns the number of notes across all tabs.
func (c TabCollection) Count() int {
	n := 0
	for _, tab := range c {
		n += len(tab.Items)
	}
	return n
}

// State is an immutable snapshot of the tab state.
type State struct {
	Tabs       TabCollection
	CurrentTab string
	UserID     string
}

// Current returns the tab the current pointer refers to.
func (s State) Current() (Tab, bool) {
	tab, ok := s.Tabs[s.CurrentTab]
	return tab, ok
}

// Authenticated reports whether the snapshot belongs to a signed-in user.
func (s State) Authenticated() bool {
	return s.UserID != ""
}

// Empty reports whether there is nothing to show: no tabs at all, or the
// first tab has no notes.
func (s State) Empty() bool {
	ids := s.Tabs.IDs()
	if len(ids) == 0 {
		return true
	}
	return len(s.Tabs[ids[0]].Items) == 0
}
