package http

import (
	"errors"
	"log/slog"
	"net/http"

	"costtracker/internal/core"
	"costtracker/internal/identity"
	"costtracker/internal/metrics"
	"costtracker/internal/session"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sess := s.currentSession(r)
	if sess == nil || sess.Phase() != session.PhaseAuthenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user := sess.User()
	data := struct {
		Email       string
		DisplayName string
		Threshold   string
		FilterOn    bool
	}{
		Email: user.Email,
	}
	data.DisplayName = user.DisplayName
	if data.DisplayName == "" {
		data.DisplayName = user.Email
	}
	filter := sess.Filter()
	data.FilterOn = filter.Active()
	if data.FilterOn {
		data.Threshold = formatAmount(filter.CostThreshold)
	}

	s.renderPage(w, r, "dashboard.html", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.authenticatedSession(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, "login.html", nil)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if s.authenticatedSession(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, "signup.html", nil)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, token, err := s.provider.Signup(r.Context(), email, password)
	metrics.CountAuthEvent("signup", err)
	if err != nil {
		s.writeAuthError(w, r, "signup", email, err)
		return
	}

	slog.InfoContext(r.Context(), "Account created",
		"uid", user.UID,
		"email", user.Email,
		"component", "auth_handler",
		"operation", "signup")

	s.openSession(w, r, token)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")

	user, token, err := s.provider.Login(r.Context(), email, password)
	metrics.CountAuthEvent("login", err)
	if err != nil {
		s.writeAuthError(w, r, "login", email, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in",
		"uid", user.UID,
		"component", "auth_handler",
		"operation", "login")

	s.openSession(w, r, token)
}

// openSession tracks the session server-side, installs the cookie and sends
// the client to the dashboard.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request, token string) {
	if _, err := s.manager.Open(token); err != nil {
		slog.ErrorContext(r.Context(), "Failed to open session", "error", err)
		InternalServerError("Could not open session").Write(w)
		return
	}

	setSessionCookie(w, token, s.opts.SessionTTL)
	NewHTMXResponse().
		Redirect("/").
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	token := sessionToken(r)
	if token != "" {
		err := s.provider.Logout(r.Context(), token)
		metrics.CountAuthEvent("logout", err)
		if err != nil && !errors.Is(err, identity.ErrInvalidToken) {
			slog.WarnContext(r.Context(), "Logout failed", "error", err)
		}
		s.manager.Close(token)
	}

	clearSessionCookie(w)
	NewHTMXResponse().
		Redirect("/login").
		Write(w)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, op, email string, err error) {
	slog.WarnContext(r.Context(), "Authentication attempt failed",
		"error", err,
		"email", email,
		"component", "auth_handler",
		"operation", op)

	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		ConflictError("An account with this email already exists").Write(w)
	case errors.Is(err, identity.ErrInvalidCredentials):
		UnauthorizedError("Invalid email or password").Write(w)
	case errors.Is(err, identity.ErrWeakPassword):
		UnprocessableEntityError("Password must be at least 6 characters").Write(w)
	case errors.Is(err, core.ErrInvalidEmail):
		UnprocessableEntityError("Enter a valid email address").Write(w)
	case errors.Is(err, core.ErrEmptyPassword):
		UnprocessableEntityError("Password cannot be empty").Write(w)
	default:
		InternalServerError("Something went wrong, try again").Write(w)
	}
}
