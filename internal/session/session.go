// Package session holds the mutable state of one scan session. A Session is
// owned by a single engine run and is not safe for concurrent use.
package session

import (
	"slices"

	"github.com/google/uuid"

	"github.com/redactyl/scangate/internal/types"
)

// SpiderConfig is the discovery configuration pushed to the scanner.
type SpiderConfig struct {
	MaxDepth    int      `json:"max_depth,omitempty"`
	ThreadCount int      `json:"thread_count,omitempty"`
	Excluded    []string `json:"excluded,omitempty"`
}

// Session is the state accumulated between "a new scanning session" and the
// final risk verdict.
type Session struct {
	ID string

	// selected is nil until a policy category has been chosen.
	selected []int
	category string

	Findings []types.Finding
	Spider   SpiderConfig
}

// New starts a session with a fresh random id.
func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// Reset clears all state except the session id.
func (s *Session) Reset() {
	s.selected = nil
	s.category = ""
	s.Findings = nil
	s.Spider = SpiderConfig{}
}

// Select records ids as the selected rule set for category.
func (s *Session) Select(category string, ids []int) {
	s.category = category
	s.selected = slices.Clone(ids)
	if s.selected == nil {
		s.selected = []int{}
	}
}

// Selected returns the selected rule ids and whether a category has been
// chosen at all.
func (s *Session) Selected() ([]int, bool) {
	if s.selected == nil {
		return nil, false
	}
	return slices.Clone(s.selected), true
}

// Category returns the name of the selected category, or "".
func (s *Session) Category() string { return s.category }

// ReplaceFindings swaps in a freshly fetched alert set.
func (s *Session) ReplaceFindings(fs []types.Finding) {
	s.Findings = slices.Clone(fs)
}
