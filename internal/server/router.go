package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jmtsu/supablog/internal/auth"
	"github.com/jmtsu/supablog/internal/config"
	"github.com/jmtsu/supablog/internal/handlers"
	"github.com/jmtsu/supablog/internal/middleware"
	"github.com/jmtsu/supablog/internal/ratelimit"
	"github.com/jmtsu/supablog/internal/respond"
)

// RouterOptions carries the dependencies the route tree composes. Every
// dependency is passed in explicitly; nothing is read from package state.
type RouterOptions struct {
	Logger   *slog.Logger
	API      config.APIConfig
	Verifier *auth.Verifier
	Limiter  *ratelimit.Limiter
	Metrics  middleware.RequestObserver

	// RequestTimeout cancels the request context after the deadline so every
	// outbound call inherits one bound. Zero disables it.
	RequestTimeout time.Duration

	AuthHandler *handlers.Auth
	APIHandler  *handlers.API
	BlogHandler *handlers.Blog
}

// NewRouter orders the middleware chain around the route groups: request-id
// first so every exit path carries the correlation header, then logging, fault
// translation, and rate limiting; authentication is applied per route group.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(opts.Logger, opts.Metrics))
	r.Use(middleware.Recoverer(opts.Logger))
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}
	if opts.Limiter != nil {
		r.Use(middleware.RateLimit(opts.Limiter))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			respond.Error(w, http.StatusNotFound, "Not found")
			return
		}
		http.NotFound(w, req)
	})

	r.Get("/health", opts.APIHandler.WebHealth)

	r.Route(opts.API.Prefix, func(r chi.Router) {
		r.Get("/health", opts.APIHandler.Health)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(opts.Verifier))
			r.Get("/protected", opts.APIHandler.Protected)
			r.Post("/tasks", opts.APIHandler.EnqueueTask)
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", opts.AuthHandler.Login)
		r.Post("/signup", opts.AuthHandler.Signup)
		r.Post("/logout", opts.AuthHandler.Logout)
		r.Post("/refresh", opts.AuthHandler.Refresh)
	})

	r.Route("/blog/api", func(r chi.Router) {
		r.Get("/posts", opts.BlogHandler.ListPosts)
		r.Get("/posts/{slug}", opts.BlogHandler.GetPost)
	})

	return r
}
