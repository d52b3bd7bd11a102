package circulation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"libralend/internal/access"
	"libralend/internal/observability"
)

// RouterOptions holds the optional pieces of the HTTP surface.
type RouterOptions struct {
	Guard        *access.Guard // nil leaves every route unauthenticated
	ProtectReads bool          // reads need any valid token, not only commands
	Limiter      *rate.Limiter // nil disables rate limiting
	Metrics      *observability.Metrics
	MetricsPath  string
}

// NewRouter mounts the handler's routes.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if opts.Metrics != nil && opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if opts.Guard != nil && opts.ProtectReads {
			r.Use(opts.Guard.Require(""))
		}
		r.Get("/items", h.HandleView)
		r.Get("/items/{id}", h.HandleStatus)
	})

	// Commands need the admin scope.
	r.Group(func(r chi.Router) {
		if opts.Guard != nil {
			r.Use(opts.Guard.Require(access.ScopeAdmin))
		}
		if opts.Limiter != nil {
			r.Use(RateLimit(opts.Limiter))
		}
		r.Post("/items/{id}/issue", h.HandleIssue)
		r.Post("/items/{id}/return", h.HandleReturn)
	})

	return r
}

// RateLimit rejects requests once the limiter runs dry.
func RateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
