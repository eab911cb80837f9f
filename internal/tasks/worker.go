package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Handler runs one task. Returning an error logs the failure; the envelope is
// not requeued.
type Handler func(ctx context.Context, envelope Envelope) error

// Worker drains the queue on an independent process, decoupled from request
// handling.
type Worker struct {
	queue    *Queue
	handlers map[Name]Handler
	logger   *slog.Logger
	popWait  time.Duration
}

// NewWorker builds an idle worker; register handlers before Run.
func NewWorker(queue *Queue, logger *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		handlers: make(map[Name]Handler),
		logger:   logger.With(slog.String("component", "worker")),
		popWait:  time.Second,
	}
}

// Register installs the handler for a task name.
func (w *Worker) Register(name Name, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("tasks: nil handler for %q", name)
	}
	if _, exists := w.handlers[name]; exists {
		return fmt.Errorf("tasks: handler for %q already registered", name)
	}
	w.handlers[name] = handler
	return nil
}

// Run consumes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		default:
		}

		payload, ok, err := w.queue.pop(ctx, w.popWait)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("queue pop failed", slog.Any("error", err))
			// Back off briefly so a dead broker does not spin the loop.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		w.dispatch(ctx, payload)
	}
}

func (w *Worker) dispatch(ctx context.Context, payload []byte) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		w.logger.Error("undecodable task envelope", slog.Any("error", err))
		return
	}
	logger := w.logger.With(
		slog.String("task_id", envelope.ID),
		slog.String("task", string(envelope.Name)))

	handler, ok := w.handlers[envelope.Name]
	if !ok {
		logger.Warn("no handler registered for task")
		return
	}

	start := time.Now()
	if err := handler(ctx, envelope); err != nil {
		logger.Error("task failed",
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Info("task completed", slog.Duration("elapsed", time.Since(start)))
}
