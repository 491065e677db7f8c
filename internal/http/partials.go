package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"costtracker/internal/metrics"
	"costtracker/internal/session"
	"costtracker/internal/view"
)

// entityRow is the template shape shared by the two list partials.
type entityRow struct {
	ID     string
	Label  string
	Amount string
	Raw    string
}

func (s *Server) handleItemsPartial(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.partialSession(w, r)
	if !ok {
		return
	}

	sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))
	if sortKey != view.SortItemsByCost {
		sortKey = view.SortItemsByName
	}

	items := sess.Items().Entities()
	items = view.FilterItems(items, sess.Filter().CostThreshold)
	items = view.SortItems(items, sortKey)

	data := struct {
		Rows     []entityRow
		Sort     string
		Filtered bool
	}{Sort: sortKey, Filtered: sess.Filter().Active()}
	for _, it := range items {
		data.Rows = append(data.Rows, entityRow{
			ID:     it.ID,
			Label:  it.Name,
			Amount: formatAmount(it.Cost),
			Raw:    view.FormatAmount(it.Cost),
		})
	}

	s.renderPartial(w, r, "items.html", data)
}

func (s *Server) handleOtherCostsPartial(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.partialSession(w, r)
	if !ok {
		return
	}

	sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))
	if sortKey != view.SortOtherCostsByAmount {
		sortKey = view.SortOtherCostsByDescription
	}

	costs := sess.OtherCosts().Entities()
	costs = view.FilterOtherCosts(costs, sess.Filter().CostThreshold)
	costs = view.SortOtherCosts(costs, sortKey)

	data := struct {
		Rows     []entityRow
		Sort     string
		Filtered bool
	}{Sort: sortKey, Filtered: sess.Filter().Active()}
	for _, c := range costs {
		data.Rows = append(data.Rows, entityRow{
			ID:     c.ID,
			Label:  c.Description,
			Amount: formatAmount(c.Amount),
			Raw:    view.FormatAmount(c.Amount),
		})
	}

	s.renderPartial(w, r, "other_costs.html", data)
}

// handleTotalPartial always sums the unfiltered collections. The filter
// narrows what the lists show, never what the project costs.
func (s *Server) handleTotalPartial(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.partialSession(w, r)
	if !ok {
		return
	}

	total := view.Total(sess.Items().Entities(), sess.OtherCosts().Entities())
	data := struct {
		Total string
	}{Total: formatAmount(total)}

	s.renderPartial(w, r, "total.html", data)
}

func (s *Server) handleChartPartial(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.partialSession(w, r)
	if !ok {
		return
	}

	slices := view.Breakdown(sess.Items().Entities(), sess.OtherCosts().Entities())
	var max float64
	for _, sl := range slices {
		if sl.Value > max {
			max = sl.Value
		}
	}

	type row struct {
		Label  string
		Amount string
		Width  int
	}
	data := struct {
		Rows  []row
		Empty bool
	}{}
	for _, sl := range slices {
		width := 0
		if max > 0 && sl.Value > 0 {
			width = int(sl.Value/max*100 + 0.5)
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Rows = append(data.Rows, row{Label: sl.Label, Amount: formatAmount(sl.Value), Width: width})
	}
	data.Empty = max == 0

	s.renderPartial(w, r, "chart.html", data)
}

// handleChanges streams change ticks as server-sent events. The client
// reloads the partials on every tick, which is how backend writes made by
// other sessions reach the page without polling.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	sess := s.authenticatedSession(r)
	if sess == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, detach := sess.Listen()
	defer detach()

	metrics.ActiveChangeStreams.Inc()
	defer metrics.ActiveChangeStreams.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprint(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	slog.DebugContext(r.Context(), "Change stream opened", "component", "changes_handler")

	for {
		select {
		case <-r.Context().Done():
			slog.DebugContext(r.Context(), "Change stream closed", "component", "changes_handler")
			return
		case _, open := <-ch:
			if !open {
				// Session was torn down, tell the client to re-auth.
				_, _ = fmt.Fprint(w, "event: session-ended\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			_, _ = fmt.Fprint(w, "event: change\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

// partialSession resolves the session for a partial request. Partials are
// fetched by the dashboard, so an unauthenticated request renders the
// redirect instruction htmx understands instead of a full page.
func (s *Server) partialSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess := s.authenticatedSession(r)
	if sess == nil {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return nil, false
	}
	return sess, true
}

func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Partial template execution failed", "error", err, "template", name)
		_, _ = w.Write([]byte(`<div class="error">Rendering failed</div>`))
	}
}
