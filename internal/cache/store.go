// Package cache fronts expensive computations with a TTL key/value store and a
// memoizing wrapper. Backend failures are always soft: logged, then treated as
// a miss so a degraded store turns the cache into a pass-through instead of an
// outage.
package cache

import (
	"context"
	"time"
)

// Store is the backend surface the cache wrapper drives. Get reports presence
// explicitly so callers can tell a miss from an empty payload.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close(ctx context.Context) error
}
