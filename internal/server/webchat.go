package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/synthesis"
)

// sessionCookie carries the web shell session ID.
const sessionCookie = "kscan_session"

// session returns the caller's chat session, creating one (and setting the
// cookie) when the request has none or it has expired. Only POST handlers
// call it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *chat.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID(),
			Path:     chatBase,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
		logging.FromContext(r.Context()).Debug("chat: new session", slog.String("session_id", sess.ID()))
	}
	return sess
}

// backToChat ends every POST with a redirect so a reload never resubmits.
func backToChat(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, chatBase+"/", http.StatusSeeOther)
}

// existingSession returns the caller's session without creating one.
func (s *Server) existingSession(r *http.Request) (*chat.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.sessions.Get(c.Value)
}

// handleChatPage handles GET /chat/. A caller without a live session sees
// the landing view; the session is created by its first POST.
func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	st := chat.State{View: chat.ViewLanding}
	if sess, ok := s.existingSession(r); ok {
		st = sess.State()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.ui.Render(w, st); err != nil {
		logging.FromContext(r.Context()).Error("chat: render failed", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleChatSearch handles POST /chat/search: the landing input and the
// composer at the bottom of every view.
func (s *Server) handleChatSearch(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		sess.SetError(err)
		backToChat(w, r)
		return
	}
	err := chat.RunSearch(r.Context(), sess, s.search, r.PostForm.Get("query"))
	if errors.Is(err, chat.ErrEmptyQuery) || errors.Is(err, chat.ErrBusy) {
		sess.SetError(err)
	}
	backToChat(w, r)
}

// handleChatGenerate handles POST /chat/generate with the ticked documents
// as repeated "doc" form values.
func (s *Server) handleChatGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := r.ParseForm(); err != nil {
		sess.SetError(err)
		backToChat(w, r)
		return
	}
	if err := sess.SetSelected(r.PostForm["doc"]); err != nil {
		sess.SetError(err)
		backToChat(w, r)
		return
	}
	err := chat.RunSynthesis(r.Context(), sess, s.synth)
	if errors.Is(err, synthesis.ErrNoSelection) || errors.Is(err, chat.ErrBusy) || errors.Is(err, chat.ErrWrongView) {
		sess.SetError(err)
	}
	backToChat(w, r)
}

// handleChatNew handles POST /chat/new ("New knowledge scan").
func (s *Server) handleChatNew(w http.ResponseWriter, r *http.Request) {
	s.session(w, r).Reset()
	backToChat(w, r)
}
