package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"costtracker/internal/docstore"
	"costtracker/internal/identity"
	"costtracker/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	docs := docstore.NewMemoryStore()
	provider := identity.NewLocalProvider(identity.NewMemoryUsers(), identity.NewJWTManager("test-secret-0123456789", time.Hour))
	manager := session.NewManager(provider, docs)
	srv := NewServer(":0", provider, manager, Options{SessionTTL: time.Hour, RateLimitPerMinute: 10000})
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv
}

func doRequest(srv *Server, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

// signupUser registers an account and returns its session cookies.
func signupUser(t *testing.T, srv *Server, email string) []*http.Cookie {
	t.Helper()
	rec := doRequest(srv, http.MethodPost, "/auth/signup", url.Values{
		"email":    {email},
		"password": {"hunter2"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d, body: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("signup did not set a session cookie")
	}
	return cookies
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(srv, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestDashboardRedirectsWhenLoggedOut(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("GET / = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestSignupLoginLogoutFlow(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	rec := doRequest(srv, http.MethodGet, "/", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / with session = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ada@example.com") {
		t.Error("dashboard does not show the signed-in identity")
	}

	rec = doRequest(srv, http.MethodPost, "/auth/logout", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout = %d, want 200", rec.Code)
	}
	if rec.Header().Get("HX-Redirect") != "/login" {
		t.Error("logout did not redirect to /login")
	}

	rec = doRequest(srv, http.MethodGet, "/", nil, cookies)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("GET / after logout = %d, want 303", rec.Code)
	}
}

func TestSignupRejections(t *testing.T) {
	srv := newTestServer(t)
	signupUser(t, srv, "ada@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"duplicate email", "ada@example.com", "hunter2", http.StatusConflict},
		{"invalid email", "not-an-email", "hunter2", http.StatusUnprocessableEntity},
		{"short password", "bob@example.com", "abc", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/auth/signup", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
			}, nil)
			if rec.Code != tt.want {
				t.Errorf("signup = %d, want %d, body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	signupUser(t, srv, "ada@example.com")

	rec := doRequest(srv, http.MethodPost, "/auth/login", url.Values{
		"email":    {"ada@example.com"},
		"password": {"wrong"},
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", rec.Code)
	}
}

func TestCreateItemRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/items", url.Values{
		"name": {"Widget"},
		"cost": {"5"},
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create without session = %d, want 401", rec.Code)
	}
}

func TestCreateItemValidation(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	tests := []struct {
		name    string
		form    url.Values
		want    int
		bodyHas string
	}{
		{
			name:    "missing name",
			form:    url.Values{"name": {""}, "cost": {"5"}},
			want:    http.StatusUnprocessableEntity,
			bodyHas: "Name is required",
		},
		{
			name:    "zero cost",
			form:    url.Values{"name": {"Widget"}, "cost": {"0"}},
			want:    http.StatusUnprocessableEntity,
			bodyHas: "greater than 0",
		},
		{
			name:    "negative cost",
			form:    url.Values{"name": {"Widget"}, "cost": {"-3"}},
			want:    http.StatusUnprocessableEntity,
			bodyHas: "greater than 0",
		},
		{
			name:    "whitespace name",
			form:    url.Values{"name": {"   "}, "cost": {"5"}},
			want:    http.StatusUnprocessableEntity,
			bodyHas: "Name is required",
		},
		{
			name: "valid",
			form: url.Values{"name": {"Widget"}, "cost": {"5"}},
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/items", tt.form, cookies)
			if rec.Code != tt.want {
				t.Fatalf("create = %d, want %d, body: %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.bodyHas != "" && !strings.Contains(rec.Body.String(), tt.bodyHas) {
				t.Errorf("body %q missing %q", rec.Body.String(), tt.bodyHas)
			}
			if tt.want == http.StatusOK {
				trigger := rec.Header().Get("HX-Trigger")
				if !strings.Contains(trigger, "entities:changed") || !strings.Contains(trigger, "show-notification") {
					t.Errorf("HX-Trigger = %q, missing expected triggers", trigger)
				}
			}
		})
	}
}

func TestItemLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	rec := doRequest(srv, http.MethodPost, "/items", url.Values{
		"name": {"Lumber"},
		"cost": {"120.50"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("items partial = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Lumber") || !strings.Contains(body, "$120.50") {
		t.Fatalf("items partial missing row: %s", body)
	}
	// The inline editor reads the unformatted value from this attribute.
	if !strings.Contains(body, `data-raw="120.50"`) {
		t.Errorf("items partial missing raw amount attribute: %s", body)
	}
	id := extractID(t, body)

	rec = doRequest(srv, http.MethodPost, "/items/update", url.Values{
		"id":   {id},
		"name": {"Redwood lumber"},
		"cost": {"150"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	if !strings.Contains(rec.Body.String(), "Redwood lumber") {
		t.Error("update not reflected in items partial")
	}

	// Unconfirmed delete must be rejected.
	rec = doRequest(srv, http.MethodPost, "/items/delete", url.Values{"id": {id}}, cookies)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed delete = %d, want 400", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/items/delete", url.Values{
		"id":      {id},
		"confirm": {"yes"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	if strings.Contains(rec.Body.String(), "Redwood lumber") {
		t.Error("deleted item still in partial")
	}
}

func TestOtherCostLifecycle(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	rec := doRequest(srv, http.MethodPost, "/other-costs", url.Values{
		"description": {"Permit fees"},
		"amount":      {"75"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("create = %d, body: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(srv, http.MethodGet, "/ui/other-costs", nil, cookies)
	body := rec.Body.String()
	if !strings.Contains(body, "Permit fees") || !strings.Contains(body, "$75.00") {
		t.Fatalf("other-costs partial missing row: %s", body)
	}
	id := extractID(t, body)

	rec = doRequest(srv, http.MethodPost, "/other-costs/delete", url.Values{
		"id":      {id},
		"confirm": {"yes"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/ui/other-costs", nil, cookies)
	if strings.Contains(rec.Body.String(), "Permit fees") {
		t.Error("deleted entry still in partial")
	}
}

func TestTotalIgnoresFilter(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Cheap"}, "cost": {"10"}}, cookies)
	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Pricey"}, "cost": {"100"}}, cookies)
	doRequest(srv, http.MethodPost, "/other-costs", url.Values{"description": {"Fees"}, "amount": {"2.50"}}, cookies)

	rec := doRequest(srv, http.MethodPost, "/filter", url.Values{"threshold": {"50"}}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("filter = %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	body := rec.Body.String()
	if strings.Contains(body, "Cheap") {
		t.Error("filtered-out item still listed")
	}
	if !strings.Contains(body, "Pricey") {
		t.Error("item above threshold missing")
	}

	// The total stays the full-project sum.
	rec = doRequest(srv, http.MethodGet, "/ui/total", nil, cookies)
	if !strings.Contains(rec.Body.String(), "$112.50") {
		t.Errorf("total partial = %s, want $112.50", rec.Body.String())
	}

	rec = doRequest(srv, http.MethodPost, "/filter/reset", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("filter reset = %d", rec.Code)
	}
	rec = doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	if !strings.Contains(rec.Body.String(), "Cheap") {
		t.Error("filter reset did not restore the list")
	}
}

func TestFilterBoundaryIsInclusive(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Exact"}, "cost": {"50"}}, cookies)
	doRequest(srv, http.MethodPost, "/filter", url.Values{"threshold": {"50"}}, cookies)

	rec := doRequest(srv, http.MethodGet, "/ui/items", nil, cookies)
	if !strings.Contains(rec.Body.String(), "Exact") {
		t.Error("item equal to the threshold must remain visible")
	}
}

func TestItemsSortByCost(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Zinc"}, "cost": {"5"}}, cookies)
	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Anvil"}, "cost": {"90"}}, cookies)

	rec := doRequest(srv, http.MethodGet, "/ui/items?sort=cost", nil, cookies)
	body := rec.Body.String()
	if strings.Index(body, "Zinc") > strings.Index(body, "Anvil") {
		t.Error("cost sort should list the cheaper item first")
	}

	rec = doRequest(srv, http.MethodGet, "/ui/items?sort=name", nil, cookies)
	body = rec.Body.String()
	if strings.Index(body, "Anvil") > strings.Index(body, "Zinc") {
		t.Error("name sort should list Anvil first")
	}
}

func TestChartPartial(t *testing.T) {
	srv := newTestServer(t)
	cookies := signupUser(t, srv, "ada@example.com")

	rec := doRequest(srv, http.MethodGet, "/ui/chart", nil, cookies)
	if !strings.Contains(rec.Body.String(), "Nothing to show yet") {
		t.Error("empty chart should render the placeholder")
	}

	doRequest(srv, http.MethodPost, "/items", url.Values{"name": {"Widget"}, "cost": {"30"}}, cookies)
	doRequest(srv, http.MethodPost, "/other-costs", url.Values{"description": {"Fees"}, "amount": {"10"}}, cookies)

	rec = doRequest(srv, http.MethodGet, "/ui/chart", nil, cookies)
	body := rec.Body.String()
	if !strings.Contains(body, "Items") || !strings.Contains(body, "Other Costs") {
		t.Fatalf("chart missing categories: %s", body)
	}
	if !strings.Contains(body, "$30.00") || !strings.Contains(body, "$10.00") {
		t.Errorf("chart missing amounts: %s", body)
	}
}

func TestPartialsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/ui/items", "/ui/other-costs", "/ui/total", "/ui/chart"} {
		rec := doRequest(srv, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, rec.Code)
		}
		if rec.Header().Get("HX-Redirect") != "/login" {
			t.Errorf("GET %s missing HX-Redirect", path)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil, nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Options not applied")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy not applied")
	}
}

// extractID pulls the first hx-vals document id out of a rendered partial.
func extractID(t *testing.T, body string) string {
	t.Helper()
	marker := `{"id": "`
	start := strings.Index(body, marker)
	if start < 0 {
		t.Fatalf("no id marker in body: %s", body)
	}
	rest := body[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		t.Fatalf("unterminated id in body: %s", body)
	}
	return rest[:end]
}
