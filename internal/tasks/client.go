package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Client submits tasks. Submission is the request path's only contact with the
// background subsystem; it never waits on execution.
type Client struct {
	queue  *Queue
	logger *slog.Logger
}

// NewClient wraps the shared queue for task submission.
func NewClient(queue *Queue, logger *slog.Logger) *Client {
	return &Client{queue: queue, logger: logger.With(slog.String("component", "tasks"))}
}

// Enqueue validates payload against name's schema, wraps it in an envelope,
// and pushes it onto the queue. The returned envelope carries the generated
// task id for correlation.
func (c *Client) Enqueue(ctx context.Context, name Name, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("tasks: marshal payload: %w", err)
	}
	if err := ValidatePayload(name, raw); err != nil {
		return Envelope{}, err
	}

	envelope := Envelope{
		ID:         uuid.NewString(),
		Name:       name,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	wire, err := json.Marshal(envelope)
	if err != nil {
		return Envelope{}, fmt.Errorf("tasks: marshal envelope: %w", err)
	}
	if err := c.queue.push(ctx, wire); err != nil {
		return Envelope{}, err
	}
	c.logger.Info("task enqueued",
		slog.String("task_id", envelope.ID),
		slog.String("task", string(name)))
	return envelope, nil
}
