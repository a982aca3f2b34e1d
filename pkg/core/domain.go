// Package core holds the domain model of tabnotes and the contracts its
// storage adapters implement.
package core

import "time"

// Keys used in the LocalStore.
const (
	// LegacyItemsKey holds the single-tab note list written by old versions.
	LegacyItemsKey = "items"
	// TabDataKey holds the whole TabCollection of an anonymous user.
	TabDataKey = "tabData"
	// IdentityKey remembers the signed-in user between sessions.
	IdentityKey = "identity"
)

// Identity is either anonymous (empty UserID) or authenticated.
type Identity struct {
	UserID string `json:"userId"`
}

// Anonymous reports whether no user is signed in.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// OrderRecord is the persisted display order of a tab's notes.
type OrderRecord struct {
	UserID string
	TabID  string
	Order  []string
}

// Suggestions groups AI suggestions by category (e.g. "urgent", "easy").
type Suggestions map[string][]string

// DefaultSuggestionCategories are created with an empty list on first enable.
var DefaultSuggestionCategories = []string{"urgent", "easy"}

// EmptySuggestions returns the default categories with no entries.
func EmptySuggestions() Suggestions {
	s := make(Suggestions, len(DefaultSuggestionCategories))
	for _, c := range DefaultSuggestionCategories {
		s[c] = []string{}
	}
	return s
}

// Len returns the number of suggestions across categories.
func (s Suggestions) Len() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// ReviewRecord is the per-user AI suggestion state.
type ReviewRecord struct {
	UserID         string
	Enabled        bool
	Suggestions    Suggestions
	LastAnalyzedAt time.Time
}

// EventType represents the type of change reported by a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change of a key in a store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}
