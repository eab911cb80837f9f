package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore tracks fixed-window request counts. Incr must perform the
// increment and window bookkeeping as one atomic operation against the store;
// a read-then-write pair would over-admit under concurrent requests from the
// same client.
type CounterStore interface {
	// Incr bumps the counter for key, starting a new window of the given
	// length if none is active, and returns the post-increment count plus the
	// time remaining in the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

// NewMemoryCounterStore keeps counters in process memory. Only suitable for a
// single instance; tests and local runs use it to avoid a redis dependency.
func NewMemoryCounterStore() CounterStore {
	return &memoryCounterStore{counters: make(map[string]memoryCounter), now: time.Now}
}

func (s *memoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter, ok := s.counters[key]
	if !ok || now.After(counter.expiresAt) {
		counter = memoryCounter{count: 0, expiresAt: now.Add(window)}
	}
	counter.count++
	s.counters[key] = counter
	return counter.count, counter.expiresAt.Sub(now), nil
}
