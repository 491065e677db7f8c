package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"costtracker/internal/core"
	"costtracker/internal/docstore"
	"costtracker/internal/metrics"
	"costtracker/internal/store"
)

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
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

	name := sanitizeInput(r.Form.Get("name"))
	costStr := strings.TrimSpace(r.Form.Get("cost"))
	if resp := itemFormErrors(name, costStr); resp != nil {
		resp.Write(w)
		return
	}

	cost, err := core.ParseAmount(costStr)
	if err != nil {
		UnprocessableEntityError("Cost must be a number").Write(w)
		return
	}

	item := core.Item{Name: name, Cost: cost}
	if err := item.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := sess.Items().Add(r.Context(), item)
	metrics.CountMutation("item", "create", err)
	if err != nil {
		s.writeMutationError(w, r, "item", "create", err)
		return
	}

	slog.InfoContext(r.Context(), "Item created",
		"item_id", created.ID,
		"item_name", created.Name,
		"component", "item_handler",
		"operation", "create")

	NewHTMXResponse().
		TriggerFormReset().
		TriggerEntitiesChanged().
		TriggerSuccessNotification(fmt.Sprintf("Added %s (%s)",
			template.HTMLEscapeString(created.Name), formatAmount(created.Cost))).
		Write(w)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
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

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing item id").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	costStr := strings.TrimSpace(r.Form.Get("cost"))
	if resp := itemFormErrors(name, costStr); resp != nil {
		resp.Write(w)
		return
	}

	cost, err := core.ParseAmount(costStr)
	if err != nil {
		UnprocessableEntityError("Cost must be a number").Write(w)
		return
	}

	updated, err := sess.Items().Update(r.Context(), id, core.Item{ID: id, Name: name, Cost: cost})
	metrics.CountMutation("item", "update", err)
	if err != nil {
		s.writeMutationError(w, r, "item", "update", err)
		return
	}

	slog.InfoContext(r.Context(), "Item updated",
		"item_id", id,
		"item_name", updated.Name,
		"component", "item_handler",
		"operation", "update")

	NewHTMXResponse().
		TriggerEntitiesChanged().
		TriggerSuccessNotification(fmt.Sprintf("Updated %s", template.HTMLEscapeString(updated.Name))).
		Write(w)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	values, resp := ParseBodyValues(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	sess := s.authenticatedSession(r)
	if sess == nil {
		UnauthorizedError("Session expired, log in again").Redirect("/login").Write(w)
		return
	}

	id := sanitizeInput(values.Get("id"))
	if id == "" {
		BadRequestError("Missing item id").Write(w)
		return
	}
	// Deletion is destructive, the client has to say it twice.
	if values.Get("confirm") != "yes" {
		BadRequestError("Deletion not confirmed").Write(w)
		return
	}

	_, err := sess.Items().Remove(r.Context(), id)
	metrics.CountMutation("item", "delete", err)
	if err != nil {
		s.writeMutationError(w, r, "item", "delete", err)
		return
	}

	slog.InfoContext(r.Context(), "Item deleted",
		"item_id", id,
		"component", "item_handler",
		"operation", "delete")

	NewHTMXResponse().
		TriggerEntitiesChanged().
		TriggerSuccessNotification("Item removed").
		Write(w)
}

// itemFormErrors applies the item form rules and renders inline errors.
// Invalid input never reaches the store.
func itemFormErrors(name, costStr string) *HTMXResponseBuilder {
	validation := core.ValidateForm(name, costStr)
	if validation.Valid() {
		return nil
	}

	var msgs []string
	if !validation.TextValid {
		msgs = append(msgs, "Name is required")
	}
	if !validation.NumberValid {
		msgs = append(msgs, "Cost must be a number greater than 0")
	}
	return UnprocessableEntityError(strings.Join(msgs, ". "))
}

// writeMutationError maps store failures to responses shared by all entity
// handlers.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, kind, op string, err error) {
	slog.ErrorContext(r.Context(), "Entity mutation failed",
		"error", err,
		"kind", kind,
		"component", kind+"_handler",
		"operation", op)

	switch {
	case errors.Is(err, store.ErrOperationInFlight):
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerNotification(NotificationWarning, "Another change is still saving, try again", 4000).
			BodyHTML(`<div class="error">Another change is still saving</div>`).
			Write(w)
	case errors.Is(err, docstore.ErrNotFound):
		// The entity vanished underneath the client. Refresh the lists so
		// the stale row disappears.
		NewHTMXResponse().
			TriggerEntitiesChanged().
			TriggerNotification(NotificationInfo, "That entry no longer exists", 4000).
			Write(w)
	default:
		NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Could not save your change, try again").
			BodyHTML(`<div class="error">Could not save your change</div>`).
			Write(w)
	}
}
