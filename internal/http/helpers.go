package http

import (
	"net/http"
	"strings"
	"time"

	"costtracker/internal/session"
)

const sessionCookieName = "ct_session"

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// sessionToken extracts the session token from the request cookie.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setSessionCookie installs the session token cookie.
func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session token cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// currentSession resolves the request's session, or nil when no token is
// present or the session cannot be opened.
func (s *Server) currentSession(r *http.Request) *session.Session {
	token := sessionToken(r)
	if token == "" {
		return nil
	}
	sess, err := s.manager.Open(token)
	if err != nil {
		return nil
	}
	return sess
}

// authenticatedSession returns the request's session only when it is in the
// authenticated phase.
func (s *Server) authenticatedSession(r *http.Request) *session.Session {
	sess := s.currentSession(r)
	if sess == nil || sess.Phase() != session.PhaseAuthenticated {
		return nil
	}
	return sess
}
