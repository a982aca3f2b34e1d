package core

import "time"

// Remote collection names.
const (
	CollectionNotes  = "notes"
	CollectionTabs   = "tabs"
	CollectionOrders = "note_order"
	CollectionReview = "review"
)

// FieldUserID is the field every collection is queried by.
const FieldUserID = "userId"

// NoteDocument is the remote shape of a note. One document per note.
type NoteDocument struct {
	UserID      string `json:"userId"`
	TabID       string `json:"tabId"`
	TabName     string `json:"tabName"`
	NoteTitle   string `json:"noteTitle"`
	Description string `json:"description"`
}

// TabDocument is the remote shape of a tab, keyed by TabKey.
type TabDocument struct {
	UserID string `json:"userId"`
	TabID  string `json:"tabId"`
	Name   string `json:"name"`
}

// OrderDocument is the remote shape of an OrderRecord, keyed by TabKey.
type OrderDocument struct {
	UserID string   `json:"userId"`
	TabID  string   `json:"tabId"`
	Order  []string `json:"order"`
}

// ReviewDocument is the remote shape of a ReviewRecord, keyed by user id.
type ReviewDocument struct {
	UserID    string      `json:"userId"`
	Enabled   bool        `json:"enabled"`
	Review    Suggestions `json:"review"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// Record converts the document into the domain record.
func (d ReviewDocument) Record() ReviewRecord {
	r := ReviewRecord{
		UserID:      d.UserID,
		Enabled:     d.Enabled,
		Suggestions: d.Review,
	}
	if r.Suggestions == nil {
		r.Suggestions = Suggestions{}
	}
	if d.UpdatedAt != nil {
		r.LastAnalyzedAt = *d.UpdatedAt
	}
	return r
}

// TabKey is the document key of per-(user, tab) records.
func TabKey(userID, tabID string) string {
	return userID + "_" + tabID
}
