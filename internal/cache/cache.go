package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Observer receives cache operation outcomes for metrics. Implemented by the
// metrics recorder; nil disables observation.
type Observer interface {
	ObserveCache(operation, outcome string)
}

// Options tune the cache wrapper around a Store.
type Options struct {
	// DefaultTTL applies when Set is called with a non-positive ttl.
	DefaultTTL time.Duration
	// OpTimeout bounds each backend call so a stalled store degrades the cache
	// to a pass-through instead of blocking request handling.
	OpTimeout time.Duration
	Observer  Observer
}

// Cache wraps a Store with JSON serialization and the soft-failure policy:
// backend errors are logged and reported as misses, never returned.
type Cache struct {
	store      Store
	logger     *slog.Logger
	defaultTTL time.Duration
	opTimeout  time.Duration
	observer   Observer
}

// New assembles the cache wrapper the handlers and services share.
func New(store Store, logger *slog.Logger, opts Options) *Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	return &Cache{
		store:      store,
		logger:     logger.With(slog.String("component", "cache")),
		defaultTTL: opts.DefaultTTL,
		opTimeout:  opts.OpTimeout,
		observer:   opts.Observer,
	}
}

// DefaultTTL exposes the fallback entry lifetime.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Get decodes the stored value into dest and reports whether the key was
// present. Backend and decode failures count as misses.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	payload, ok, err := c.store.Get(opCtx, key)
	if err != nil {
		c.logger.Warn("cache get failed", slog.String("key", key), slog.Any("error", err))
		c.observe("get", "error")
		return false
	}
	if !ok {
		c.observe("get", "miss")
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		c.logger.Warn("cache entry undecodable", slog.String("key", key), slog.Any("error", err))
		c.observe("get", "error")
		return false
	}
	c.observe("get", "hit")
	return true
}

// Set stores value under key for ttl (DefaultTTL when ttl <= 0). Failures are
// swallowed after logging.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value unserializable", slog.String("key", key), slog.Any("error", err))
		c.observe("set", "error")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.store.Set(opCtx, key, payload, ttl); err != nil {
		c.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", err))
		c.observe("set", "error")
		return
	}
	c.observe("set", "stored")
}

// Delete removes key best-effort.
func (c *Cache) Delete(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.store.Delete(opCtx, key); err != nil {
		c.logger.Warn("cache delete failed", slog.String("key", key), slog.Any("error", err))
		c.observe("delete", "error")
		return
	}
	c.observe("delete", "deleted")
}

// Close releases the backing store.
func (c *Cache) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

func (c *Cache) observe(operation, outcome string) {
	if c.observer != nil {
		c.observer.ObserveCache(operation, outcome)
	}
}

// Memoize returns the cached result for the derived key, or invokes fn and
// caches its result for ttl (the cache default when ttl <= 0). Errors from fn
// propagate unchanged and are never cached.
func Memoize[T any](ctx context.Context, c *Cache, prefix string, args []any, kwargs map[string]any, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	key := Key(prefix, args, kwargs)

	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	result, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, result, ttl)
	return result, nil
}
