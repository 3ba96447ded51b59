// Package chat holds the conversation state behind both chat shells. A
// Session moves through four views:
//
//	landing   -> nothing asked yet
//	selection -> search results listed with checkboxes
//	synthesis -> a knowledge scan is being generated
//	results   -> the knowledge scan is shown
//
// Session methods are safe for concurrent use; the web shell shares one
// Session between all requests carrying the same cookie.
package chat

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/synthesis"
)

// View is the screen a Session is currently showing.
type View string

const (
	ViewLanding   View = "landing"
	ViewSelection View = "selection"
	ViewSynthesis View = "synthesis"
	ViewResults   View = "results"
)

var (
	// ErrEmptyQuery is returned by Submit for a blank query.
	ErrEmptyQuery = errors.New("chat: query is empty")
	// ErrBusy is returned when a search or synthesis is already in flight.
	ErrBusy = errors.New("chat: a request is already in progress")
	// ErrWrongView is returned when an action is not valid in the current view.
	ErrWrongView = errors.New("chat: action not available in this view")
	// ErrUnknownDocument is returned by Toggle for an ID not in the result list.
	ErrUnknownDocument = errors.New("chat: unknown document")
)

// State is a point-in-time copy of a Session, safe to render.
type State struct {
	ID        string
	View      View
	Messages  []string
	Loading   bool
	Query     string
	Documents []search.Document
	Scan      *api.KnowledgeScan
	// Err is the message of the last failed search or synthesis, if any.
	Err string
}

// Selected returns how many documents are ticked.
func (s State) Selected() int {
	n := 0
	for _, d := range s.Documents {
		if d.Selected {
			n++
		}
	}
	return n
}

// Session is one conversation.
type Session struct {
	mu    sync.Mutex
	state State
	// pending is the query of the search in flight. It becomes state.Query
	// only when that search succeeds, so a failed search never pairs the
	// documents on screen with a different question.
	pending  string
	lastSeen time.Time
}

// NewSession returns a Session in the landing view.
func NewSession(id string) *Session {
	return &Session{
		state:    State{ID: id, View: ViewLanding},
		lastSeen: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Messages = slices.Clone(st.Messages)
	st.Documents = slices.Clone(st.Documents)
	return st
}

// Submit records a user query and marks the session as loading. The caller
// runs the search and reports back with SearchSucceeded or SearchFailed.
func (s *Session) Submit(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loading {
		return ErrBusy
	}
	s.touch()
	s.state.Messages = append(s.state.Messages, query)
	s.pending = query
	s.state.Loading = true
	s.state.Err = ""
	return nil
}

// SearchSucceeded shows docs, all unselected, in the selection view.
func (s *Session) SearchSucceeded(docs []search.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.state.Documents = make([]search.Document, len(docs))
	for i, d := range docs {
		d.Selected = false
		s.state.Documents[i] = d
	}
	s.state.Query = s.pending
	s.pending = ""
	s.state.Loading = false
	s.state.Scan = nil
	s.state.View = ViewSelection
}

// SearchFailed clears the loading flag and keeps err. The view, the
// documents and the query they answer are unchanged.
func (s *Session) SearchFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pending = ""
	s.state.Loading = false
	s.state.Err = errString(err)
}

// Toggle flips the selection of the document with the given ID.
func (s *Session) Toggle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectable(); err != nil {
		return err
	}
	s.touch()
	for i := range s.state.Documents {
		if s.state.Documents[i].ID == id {
			s.state.Documents[i].Selected = !s.state.Documents[i].Selected
			return nil
		}
	}
	return ErrUnknownDocument
}

// SetSelected selects exactly the documents whose IDs are in ids. Unknown
// IDs are ignored.
func (s *Session) SetSelected(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectable(); err != nil {
		return err
	}
	s.touch()
	for i := range s.state.Documents {
		s.state.Documents[i].Selected = slices.Contains(ids, s.state.Documents[i].ID)
	}
	return nil
}

// BeginSynthesis builds the synthesis request from the current selection
// and moves to the synthesis view.
func (s *Session) BeginSynthesis() (*api.SynthesisRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.selectable(); err != nil {
		return nil, err
	}
	req, err := synthesis.BuildRequest(s.state.Query, s.state.Documents)
	if err != nil {
		return nil, err
	}
	s.touch()
	s.state.View = ViewSynthesis
	s.state.Loading = true
	s.state.Err = ""
	return req, nil
}

// SynthesisSucceeded shows scan in the results view.
func (s *Session) SynthesisSucceeded(scan *api.KnowledgeScan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.state.Scan = scan
	s.state.Loading = false
	s.state.View = ViewResults
}

// SynthesisFailed returns to the selection view with the selection intact.
func (s *Session) SynthesisFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.state.Loading = false
	s.state.View = ViewSelection
	s.state.Err = errString(err)
}

// SetError records err for display without changing the view.
func (s *Session) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.state.Err = errString(err)
}

// Reset clears everything and returns to the landing view.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.pending = ""
	s.state = State{ID: s.state.ID, View: ViewLanding}
}

// idleSince reports when the session was last used.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// selectable reports whether selection actions are allowed. Caller holds mu.
func (s *Session) selectable() error {
	if s.state.Loading {
		return ErrBusy
	}
	if s.state.View != ViewSelection {
		return ErrWrongView
	}
	return nil
}

func (s *Session) touch() { s.lastSeen = time.Now() }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
