package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/logging"
)

// SessionHeader lets non-browser clients pass the session ID explicitly.
const SessionHeader = "X-Session-ID"

// sessionID reads the session ID from the header or the cookie.
func (s *Server) sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireSession resolves the caller's live session and tags the request
// context with its ID for logging.
func (s *Server) requireSession(r *http.Request) (*core.Session, *http.Request, error) {
	id := s.sessionID(r)
	if id == "" {
		return nil, r, core.ErrSessionNotFound
	}
	sess, err := s.service.Session(id)
	if err != nil {
		return nil, r, err
	}
	return sess, r.WithContext(logging.ContextWithSession(r.Context(), sess.ID)), nil
}

// ensureSession returns the caller's session, creating one and setting the
// cookie when it is missing or expired.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (*core.Session, *http.Request, error) {
	sess, r2, err := s.requireSession(r)
	if err == nil {
		return sess, r2, nil
	}
	if !errors.Is(err, core.ErrSessionNotFound) {
		return nil, r, err
	}
	return s.newSession(w, r)
}

// newSession always starts a fresh session and sets the cookie.
func (s *Server) newSession(w http.ResponseWriter, r *http.Request) (*core.Session, *http.Request, error) {
	sess, err := s.service.CreateSession(r.Context())
	if err != nil {
		return nil, r, err
	}
	s.setSessionCookie(w, sess.ID)
	w.Header().Set(SessionHeader, sess.ID)
	return sess, r.WithContext(logging.ContextWithSession(r.Context(), sess.ID)), nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.Session.IdleTimeout.Seconds()),
	})
}
