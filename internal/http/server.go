package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"costtracker/internal/identity"
	"costtracker/internal/metrics"
	"costtracker/internal/middleware/ratelimit"
	"costtracker/internal/middleware/security"
	"costtracker/internal/middleware/trace"
	"costtracker/internal/session"
	appweb "costtracker/web"
)

// Options holds server tunables.
type Options struct {
	SessionTTL         time.Duration
	RateLimitPerMinute int
}

// Server wires the identity provider and session manager into the htmx UI.
type Server struct {
	http.Server
	templates *template.Template
	provider  identity.Provider
	manager   *session.Manager
	opts      Options

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, provider identity.Provider, manager *session.Manager, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		provider: provider,
		manager:  manager,
		opts:     opts,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: security.NewDetector(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Pages
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/login", s.handleLoginPage)
	mux.HandleFunc("/signup", s.handleSignupPage)

	// Auth
	mux.HandleFunc("/auth/signup", s.handleSignup)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/logout", s.handleLogout)

	// Mutations
	mux.HandleFunc("/items", s.handleCreateItem)
	mux.HandleFunc("/items/update", s.handleUpdateItem)
	mux.HandleFunc("/items/delete", s.handleDeleteItem)
	mux.HandleFunc("/other-costs", s.handleCreateOtherCost)
	mux.HandleFunc("/other-costs/update", s.handleUpdateOtherCost)
	mux.HandleFunc("/other-costs/delete", s.handleDeleteOtherCost)

	// View filter
	mux.HandleFunc("/filter", s.handleSetFilter)
	mux.HandleFunc("/filter/reset", s.handleResetFilter)

	// UI partials
	mux.HandleFunc("/ui/items", s.handleItemsPartial)
	mux.HandleFunc("/ui/other-costs", s.handleOtherCostsPartial)
	mux.HandleFunc("/ui/total", s.handleTotalPartial)
	mux.HandleFunc("/ui/chart", s.handleChartPartial)
	mux.HandleFunc("/ui/changes", s.handleChanges)

	// Operational endpoints
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/metrics", metrics.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	s.Handler = headers.Middleware(tracer.Middleware(s.withRateLimit(mux)))

	return s
}

// withRateLimit rejects mutating requests from clients over their budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.rateLimiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
