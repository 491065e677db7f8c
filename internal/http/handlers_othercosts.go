package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"costtracker/internal/core"
	"costtracker/internal/metrics"
)

func (s *Server) handleCreateOtherCost(w http.ResponseWriter, r *http.Request) {
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

	description := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	if resp := otherCostFormErrors(description, amountStr); resp != nil {
		resp.Write(w)
		return
	}

	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		UnprocessableEntityError("Amount must be a number").Write(w)
		return
	}

	oc := core.OtherCost{Description: description, Amount: amount}
	if err := oc.Validate(); err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	created, err := sess.OtherCosts().Add(r.Context(), oc)
	metrics.CountMutation("other_cost", "create", err)
	if err != nil {
		s.writeMutationError(w, r, "other_cost", "create", err)
		return
	}

	slog.InfoContext(r.Context(), "Other cost created",
		"other_cost_id", created.ID,
		"description", created.Description,
		"component", "other_cost_handler",
		"operation", "create")

	NewHTMXResponse().
		TriggerFormReset().
		TriggerEntitiesChanged().
		TriggerSuccessNotification(fmt.Sprintf("Added %s (%s)",
			template.HTMLEscapeString(created.Description), formatAmount(created.Amount))).
		Write(w)
}

func (s *Server) handleUpdateOtherCost(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing entry id").Write(w)
		return
	}

	description := sanitizeInput(r.Form.Get("description"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	if resp := otherCostFormErrors(description, amountStr); resp != nil {
		resp.Write(w)
		return
	}

	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		UnprocessableEntityError("Amount must be a number").Write(w)
		return
	}

	updated, err := sess.OtherCosts().Update(r.Context(), id, core.OtherCost{ID: id, Description: description, Amount: amount})
	metrics.CountMutation("other_cost", "update", err)
	if err != nil {
		s.writeMutationError(w, r, "other_cost", "update", err)
		return
	}

	slog.InfoContext(r.Context(), "Other cost updated",
		"other_cost_id", id,
		"description", updated.Description,
		"component", "other_cost_handler",
		"operation", "update")

	NewHTMXResponse().
		TriggerEntitiesChanged().
		TriggerSuccessNotification(fmt.Sprintf("Updated %s", template.HTMLEscapeString(updated.Description))).
		Write(w)
}

func (s *Server) handleDeleteOtherCost(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing entry id").Write(w)
		return
	}
	if values.Get("confirm") != "yes" {
		BadRequestError("Deletion not confirmed").Write(w)
		return
	}

	_, err := sess.OtherCosts().Remove(r.Context(), id)
	metrics.CountMutation("other_cost", "delete", err)
	if err != nil {
		s.writeMutationError(w, r, "other_cost", "delete", err)
		return
	}

	slog.InfoContext(r.Context(), "Other cost deleted",
		"other_cost_id", id,
		"component", "other_cost_handler",
		"operation", "delete")

	NewHTMXResponse().
		TriggerEntitiesChanged().
		TriggerSuccessNotification("Entry removed").
		Write(w)
}

func otherCostFormErrors(description, amountStr string) *HTMXResponseBuilder {
	validation := core.ValidateForm(description, amountStr)
	if validation.Valid() {
		return nil
	}

	var msgs []string
	if !validation.TextValid {
		msgs = append(msgs, "Description is required")
	}
	if !validation.NumberValid {
		msgs = append(msgs, "Amount must be a number greater than 0")
	}
	return UnprocessableEntityError(strings.Join(msgs, ". "))
}
