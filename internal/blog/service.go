package blog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jmtsu/supablog/internal/cache"
)

// ObjectFetcher downloads markdown bodies from the storage bucket. Satisfied
// by the supabase client.
type ObjectFetcher interface {
	DownloadObject(ctx context.Context, bucket, path string) ([]byte, error)
}

// Service composes the post store, storage-backed content, and the cache
// layer. Reads are memoized; storage failures degrade to posts without
// rendered content rather than errors.
type Service struct {
	store    Store
	storage  ObjectFetcher
	bucket   string
	cache    *cache.Cache
	logger   *slog.Logger
	markdown goldmark.Markdown
}

// NewService wires the blog read path.
func NewService(store Store, storage ObjectFetcher, bucket string, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		storage: storage,
		bucket:  bucket,
		cache:   c,
		logger:  logger.With(slog.String("component", "blog")),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		),
	}
}

// ListPosts returns published posts, newest first, memoized per (limit, offset).
func (s *Service) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return cache.Memoize(ctx, s.cache, "blog:list", nil,
		map[string]any{"limit": limit, "offset": offset}, 0,
		func(ctx context.Context) ([]Post, error) {
			return s.store.ListPosts(ctx, limit, offset)
		})
}

// GetBySlug returns one published post with storage-backed markdown rendered
// into HTMLContent, memoized per slug. found=false means no such post.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Post, bool, error) {
	type lookup struct {
		Post  Post `json:"post"`
		Found bool `json:"found"`
	}
	result, err := cache.Memoize(ctx, s.cache, "blog:post", []any{slug}, nil, 0,
		func(ctx context.Context) (lookup, error) {
			post, found, err := s.store.GetBySlug(ctx, slug)
			if err != nil {
				return lookup{}, err
			}
			if found && post.ContentStoragePath != "" {
				s.attachContent(ctx, &post)
			}
			return lookup{Post: post, Found: found}, nil
		})
	if err != nil {
		return Post{}, false, err
	}
	return result.Post, result.Found, nil
}

// attachContent pulls the markdown body from storage and renders it. A storage
// miss only costs the rendered content, matching the soft-failure policy of
// the rest of the read path.
func (s *Service) attachContent(ctx context.Context, post *Post) {
	if s.storage == nil {
		return
	}
	body, err := s.storage.DownloadObject(ctx, s.bucket, post.ContentStoragePath)
	if err != nil {
		s.logger.Warn("storage content fetch failed",
			slog.String("slug", post.Slug),
			slog.String("path", post.ContentStoragePath),
			slog.Any("error", err))
		return
	}
	html, err := s.renderMarkdown(body)
	if err != nil {
		s.logger.Warn("markdown render failed", slog.String("slug", post.Slug), slog.Any("error", err))
		return
	}
	post.HTMLContent = html
}

func (s *Service) renderMarkdown(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert(source, &buf); err != nil {
		return "", fmt.Errorf("blog: render markdown: %w", err)
	}
	return buf.String(), nil
}
