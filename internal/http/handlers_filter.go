package http

import (
	"log/slog"
	"net/http"
	"strings"
)

// handleSetFilter updates the session's cost threshold from form input.
// Bad input clears the filter instead of erroring, so a typo never hides
// the whole list behind an error page.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	sess := s.authenticatedSession(r)
	if sess == nil {
		UnauthorizedError("Session expired, log in again").Redirect("/login").Write(w)
		return
	}

	raw := strings.TrimSpace(r.Form.Get("threshold"))
	sess.SetCostThreshold(raw)

	filter := sess.Filter()
	slog.InfoContext(r.Context(), "View filter updated",
		"threshold", filter.CostThreshold,
		"active", filter.Active(),
		"component", "filter_handler",
		"operation", "update")

	builder := NewHTMXResponse().TriggerEntitiesChanged()
	if filter.Active() {
		builder.TriggerNotification(NotificationInfo,
			"Showing entries of "+formatAmount(filter.CostThreshold)+" and above", 3000)
	}
	builder.Write(w)
}

func (s *Server) handleResetFilter(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	sess := s.authenticatedSession(r)
	if sess == nil {
		UnauthorizedError("Session expired, log in again").Redirect("/login").Write(w)
		return
	}

	sess.ResetCostThreshold()
	slog.InfoContext(r.Context(), "View filter cleared",
		"component", "filter_handler",
		"operation", "update")

	NewHTMXResponse().
		TriggerEntitiesChanged().
		Write(w)
}
