// Package blog serves published posts from Postgres, pulling long-form
// markdown out of object storage and rendering it on read.
package blog

import "time"

// Post is the API shape of a blog post. Content lives either inline in the
// table or behind ContentStoragePath in the storage bucket; HTMLContent is
// only populated on single-post reads when storage content exists.
type Post struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Slug               string     `json:"slug"`
	Excerpt            string     `json:"excerpt"`
	Author             string     `json:"author"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at"`
	Tags               []string   `json:"tags"`
	ContentStoragePath string     `json:"content_storage_path,omitempty"`
	Content            string     `json:"content,omitempty"`
	HTMLContent        string     `json:"html_content,omitempty"`
}
