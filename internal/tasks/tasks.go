// Package tasks moves background work out of the request path through a shared
// redis list. Submissions are fire-and-forget: handlers push a typed envelope
// and never wait on the result; the worker process drains the queue.
package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Name enumerates the tasks the worker knows how to run. Enqueueing any other
// name is rejected at the boundary instead of failing inside the worker.
type Name string

const (
	// TaskExample is a demonstration task carrying arbitrary data.
	TaskExample Name = "tasks.example_task"
	// TaskProcessBlogPost re-processes one blog post (preview, indexing).
	TaskProcessBlogPost Name = "tasks.process_blog_post"
)

// ExamplePayload is the body of TaskExample.
type ExamplePayload struct {
	Data map[string]any `json:"data"`
}

// ProcessBlogPostPayload is the body of TaskProcessBlogPost.
type ProcessBlogPostPayload struct {
	PostID string `json:"post_id"`
}

// Envelope is the wire form of a submitted task.
type Envelope struct {
	ID         string          `json:"id"`
	Name       Name            `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ValidatePayload checks that raw matches the schema of the named task.
// Unknown fields and missing required fields are both rejected so malformed
// submissions surface to the submitter, not the worker.
func ValidatePayload(name Name, raw json.RawMessage) error {
	switch name {
	case TaskExample:
		var payload ExamplePayload
		if err := strictUnmarshal(raw, &payload); err != nil {
			return fmt.Errorf("tasks: %s payload: %w", name, err)
		}
		return nil
	case TaskProcessBlogPost:
		var payload ProcessBlogPostPayload
		if err := strictUnmarshal(raw, &payload); err != nil {
			return fmt.Errorf("tasks: %s payload: %w", name, err)
		}
		if payload.PostID == "" {
			return fmt.Errorf("tasks: %s payload: post_id required", name)
		}
		return nil
	default:
		return fmt.Errorf("tasks: unknown task %q", name)
	}
}

func strictUnmarshal(raw json.RawMessage, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}
