package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Observer receives limiter outcomes for metrics. Nil disables observation.
type Observer interface {
	ObserveRateLimit(outcome string)
}

// Decision reports whether a request may proceed and, when rejected, which
// limit tripped and how long the client should back off.
type Decision struct {
	Allowed    bool
	Exceeded   Limit
	RetryAfter time.Duration
}

// Options configure a Limiter.
type Options struct {
	// Enabled false admits everything; local and test environments use this to
	// keep behavior deterministic.
	Enabled bool
	Limits  []Limit
	// FailClosed rejects requests when the counter store is unreachable.
	// Default is fail-open: quota precision is worth less than availability
	// for this read-mostly service, so store failures admit and log.
	FailClosed bool
	// OpTimeout bounds each counter-store call.
	OpTimeout time.Duration
	Observer  Observer
}

// Limiter enforces every configured limit against the shared counter store.
type Limiter struct {
	store      CounterStore
	limits     []Limit
	enabled    bool
	failClosed bool
	opTimeout  time.Duration
	logger     *slog.Logger
	observer   Observer
}

// New builds the limiter the request pipeline consults before routing.
func New(store CounterStore, logger *slog.Logger, opts Options) (*Limiter, error) {
	if opts.Enabled && store == nil {
		return nil, errors.New("ratelimit: counter store required")
	}
	if opts.Enabled && len(opts.Limits) == 0 {
		return nil, errors.New("ratelimit: at least one limit required")
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	return &Limiter{
		store:      store,
		limits:     opts.Limits,
		enabled:    opts.Enabled,
		failClosed: opts.FailClosed,
		opTimeout:  opts.OpTimeout,
		logger:     logger.With(slog.String("component", "ratelimit")),
		observer:   opts.Observer,
	}, nil
}

// Check increments every limit's window counter for the client and rejects as
// soon as one limit is exceeded. The increment-and-compare runs against the
// shared store atomically per limit, so concurrent requests from one client
// cannot slip past the boundary.
func (l *Limiter) Check(ctx context.Context, clientID string) Decision {
	if !l.enabled {
		return Decision{Allowed: true}
	}

	for _, limit := range l.limits {
		key := fmt.Sprintf("ratelimit:%s:%s", clientID, limit.Unit)

		opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
		count, remaining, err := l.store.Incr(opCtx, key, limit.Window)
		cancel()
		if err != nil {
			l.logger.Warn("counter store failed",
				slog.String("client", clientID),
				slog.String("limit", limit.String()),
				slog.Any("error", err))
			if l.failClosed {
				l.observe("fail_closed")
				return Decision{Allowed: false, Exceeded: limit, RetryAfter: limit.Window}
			}
			l.observe("fail_open")
			continue
		}
		if count > int64(limit.Count) {
			l.observe("rejected")
			return Decision{Allowed: false, Exceeded: limit, RetryAfter: remaining}
		}
	}
	l.observe("admitted")
	return Decision{Allowed: true}
}

func (l *Limiter) observe(outcome string) {
	if l.observer != nil {
		l.observer.ObserveRateLimit(outcome)
	}
}
