package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLimit(t *testing.T) {
	limit, err := ParseLimit("60 per minute")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if limit.Count != 60 || limit.Window != time.Minute || limit.Unit != "minute" {
		t.Fatalf("unexpected limit %#v", limit)
	}

	if _, err := ParseLimit("60 every minute"); err == nil {
		t.Fatalf("expected error for bad separator")
	}
	if _, err := ParseLimit("0 per hour"); err == nil {
		t.Fatalf("expected error for zero count")
	}
	if _, err := ParseLimit("10 per fortnight"); err == nil {
		t.Fatalf("expected error for unknown unit")
	}
}

func TestCheckRejectsAboveLimit(t *testing.T) {
	limiter, err := New(NewMemoryCounterStore(), newTestLogger(), Options{
		Enabled: true,
		Limits:  []Limit{{Count: 3, Window: time.Minute, Unit: "minute"}},
	})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if d := limiter.Check(ctx, "1.2.3.4"); !d.Allowed {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	d := limiter.Check(ctx, "1.2.3.4")
	if d.Allowed {
		t.Fatalf("request 4 should be rejected")
	}
	if d.Exceeded.Count != 3 || d.RetryAfter <= 0 {
		t.Fatalf("unexpected rejection detail %#v", d)
	}

	// A different client has its own counter.
	if d := limiter.Check(ctx, "5.6.7.8"); !d.Allowed {
		t.Fatalf("other client should be admitted")
	}
}

func TestCheckAllLimitsMustHold(t *testing.T) {
	limiter, _ := New(NewMemoryCounterStore(), newTestLogger(), Options{
		Enabled: true,
		Limits: []Limit{
			{Count: 100, Window: time.Minute, Unit: "minute"},
			{Count: 2, Window: time.Hour, Unit: "hour"},
		},
	})
	ctx := context.Background()

	limiter.Check(ctx, "client")
	limiter.Check(ctx, "client")
	d := limiter.Check(ctx, "client")
	if d.Allowed {
		t.Fatalf("hourly limit should reject third request")
	}
	if d.Exceeded.Unit != "hour" {
		t.Fatalf("expected hourly limit to trip, got %s", d.Exceeded.String())
	}
}

func TestCheckDisabledAdmitsEverything(t *testing.T) {
	limiter, err := New(nil, newTestLogger(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	for i := 0; i < 100; i++ {
		if d := limiter.Check(context.Background(), "client"); !d.Allowed {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

type brokenCounterStore struct{}

func (brokenCounterStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestCheckFailOpenByDefault(t *testing.T) {
	limiter, _ := New(brokenCounterStore{}, newTestLogger(), Options{
		Enabled: true,
		Limits:  []Limit{{Count: 1, Window: time.Minute, Unit: "minute"}},
	})
	if d := limiter.Check(context.Background(), "client"); !d.Allowed {
		t.Fatalf("expected fail-open admission")
	}
}

func TestCheckFailClosed(t *testing.T) {
	limiter, _ := New(brokenCounterStore{}, newTestLogger(), Options{
		Enabled:    true,
		FailClosed: true,
		Limits:     []Limit{{Count: 1, Window: time.Minute, Unit: "minute"}},
	})
	if d := limiter.Check(context.Background(), "client"); d.Allowed {
		t.Fatalf("expected fail-closed rejection")
	}
}

func TestMemoryCounterStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.Incr(ctx, "k", time.Minute); err != nil {
				t.Errorf("incr: %v", err)
			}
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if count != 51 {
		t.Fatalf("expected 51 after concurrent increments, got %d", count)
	}
}

func TestRedisCounterStoreAtomicWindow(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer server.Close()

	store, closeFn, err := NewRedisCounterStore("redis://" + server.Addr())
	if err != nil {
		t.Fatalf("new counter store: %v", err)
	}
	defer closeFn()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, remaining, err := store.Incr(ctx, "ratelimit:client:minute", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
		if remaining <= 0 || remaining > time.Minute {
			t.Fatalf("unexpected remaining window %v", remaining)
		}
	}

	// Rolling the window over resets the count.
	server.FastForward(2 * time.Minute)
	count, _, err := store.Incr(ctx, "ratelimit:client:minute", time.Minute)
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", count)
	}
}
