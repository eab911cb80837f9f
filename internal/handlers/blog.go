package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmtsu/supablog/internal/blog"
	"github.com/jmtsu/supablog/internal/middleware"
	"github.com/jmtsu/supablog/internal/respond"
)

// Blog serves the JSON blog endpoints.
type Blog struct {
	service *blog.Service
	logger  *slog.Logger
}

// NewBlog wires the blog routes. A nil service (database not configured)
// turns the routes into 500s.
func NewBlog(service *blog.Service, logger *slog.Logger) *Blog {
	return &Blog{service: service, logger: logger.With(slog.String("component", "blog_handler"))}
}

// ListPosts handles GET /blog/api/posts with optional limit/offset query
// parameters.
func (h *Blog) ListPosts(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	posts, err := h.service.ListPosts(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("listing posts failed",
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	respond.JSON(w, http.StatusOK, posts)
}

// GetPost handles GET /blog/api/posts/{slug}.
func (h *Blog) GetPost(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	slug := chi.URLParam(r, "slug")

	post, found, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("fetching post failed",
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.String("slug", slug),
			slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "Failed to fetch post")
		return
	}
	if !found {
		respond.Error(w, http.StatusNotFound, "Post not found")
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
