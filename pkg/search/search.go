// Package search finds notes by words in their title or description.
package search

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/tabnotes/pkg/core"
)

// Match is a note found by a search, with its position in the tab.
type Match struct {
	Index int
	Note  core.Note
}

// Result groups the matches of one tab.
type Result struct {
	TabID   string
	TabName string
	Matches []Match
}

type options struct {
	tabPattern string
}

// Option configures a search.
type Option func(*options)

// WithTabPattern restricts the search to tabs whose name matches a
// doublestar glob, e.g. "Work*" or "{Home,Errands}".
func WithTabPattern(pattern string) Option {
	return func(o *options) {
		o.tabPattern = pattern
	}
}

// Notes searches every tab. The query is split on whitespace and a note
// matches when any word occurs in its title or description, ignoring case.
// Tabs without matches are omitted. A blank query returns no results.
func Notes(tabs core.TabCollection, query string, opts ...Option) ([]Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tabPattern != "" && !doublestar.ValidatePattern(o.tabPattern) {
		return nil, fmt.Errorf("invalid tab pattern %q: %w", o.tabPattern, doublestar.ErrBadPattern)
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	var results []Result
	for _, tabID := range tabs.IDs() {
		tab := tabs[tabID]
		if o.tabPattern != "" {
			ok, err := doublestar.Match(o.tabPattern, tab.Name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		var matches []Match
		for i, note := range tab.Items {
			if matchesAny(note, words) {
				matches = append(matches, Match{Index: i, Note: note})
			}
		}
		if len(matches) > 0 {
			results = append(results, Result{TabID: tabID, TabName: tab.Name, Matches: matches})
		}
	}
	return results, nil
}

func matchesAny(note core.Note, words []string) bool {
	title := strings.ToLower(note.Title)
	description := strings.ToLower(note.Description)
	for _, w := range words {
		if strings.Contains(title, w) || strings.Contains(description, w) {
			return true
		}
	}
	return false
}
