package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Store reads blog posts from their system of record.
type Store interface {
	ListPosts(ctx context.Context, limit, offset int) ([]Post, error)
	// GetBySlug reports found=false for unknown or unpublished slugs.
	GetBySlug(ctx context.Context, slug string) (Post, bool, error)
	// GetByID looks a post up by primary key regardless of published state;
	// the worker re-processes drafts too.
	GetByID(ctx context.Context, id string) (Post, bool, error)
}

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the blog_posts table over database/sql.
func NewPostgresStore(url string) (Store, func() error, error) {
	if url == "" {
		return nil, nil, errors.New("blog: database url required")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, fmt.Errorf("blog: open database: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("blog: database ping: %w", err)
	}
	return &postgresStore{db: db}, db.Close, nil
}

const postColumns = `id, title, slug, coalesce(excerpt, ''), coalesce(author, ''),
	created_at, updated_at, coalesce(tags, '{}'),
	coalesce(content_storage_path, ''), coalesce(content, '')`

func (s *postgresStore) ListPosts(ctx context.Context, limit, offset int) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE published = true
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("blog: list posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := make([]Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blog: list posts rows: %w", err)
	}
	return posts, nil
}

func (s *postgresStore) GetBySlug(ctx context.Context, slug string) (Post, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE slug = $1 AND published = true`, slug)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, false, nil
		}
		return Post{}, false, err
	}
	return post, true, nil
}

func (s *postgresStore) GetByID(ctx context.Context, id string) (Post, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE id = $1`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, false, nil
		}
		return Post{}, false, err
	}
	return post, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var post Post
	var tags pq.StringArray
	var updatedAt sql.NullTime
	err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Author,
		&post.CreatedAt, &updatedAt, &tags, &post.ContentStoragePath, &post.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Post{}, err
		}
		return Post{}, fmt.Errorf("blog: scan post: %w", err)
	}
	post.Tags = []string(tags)
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		post.UpdatedAt = &t
	}
	return post, nil
}
