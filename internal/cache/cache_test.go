package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStoreSetGetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte(`"v"`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload, ok, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(payload) != `"v"` {
		t.Fatalf("unexpected payload %q ok=%v", payload, ok)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected delete to remove key")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("1"), 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer server.Close()

	store, err := NewRedis("redis://" + server.Addr())
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	ctx := context.Background()
	defer func() { _ = store.Close(ctx) }()

	if err := store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload, ok, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(payload) != `{"a":1}` {
		t.Fatalf("unexpected payload %q ok=%v", payload, ok)
	}

	if _, ok, err := store.Get(ctx, "absent"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected delete to remove key")
	}
}

func TestCacheSetIdempotent(t *testing.T) {
	c := New(NewMemory(), newTestLogger(), Options{})
	ctx := context.Background()

	c.Set(ctx, "k", map[string]any{"n": 1}, 0)
	c.Set(ctx, "k", map[string]any{"n": 2}, 0)

	var got map[string]any
	if !c.Get(ctx, "k", &got) {
		t.Fatalf("expected hit")
	}
	if got["n"] != float64(2) {
		t.Fatalf("expected last write to win, got %#v", got)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("backend down") }
func (failingStore) Close(context.Context) error          { return nil }

func TestCacheSwallowsBackendErrors(t *testing.T) {
	c := New(failingStore{}, newTestLogger(), Options{})
	ctx := context.Background()

	var dest string
	if c.Get(ctx, "k", &dest) {
		t.Fatalf("expected miss from failing backend")
	}
	// Neither call may panic or surface the backend error.
	c.Set(ctx, "k", "v", 0)
	c.Delete(ctx, "k")
}

func TestMemoizeCachesResult(t *testing.T) {
	c := New(NewMemory(), newTestLogger(), Options{})
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := Memoize(ctx, c, "posts", []any{10}, nil, 0, compute)
	if err != nil {
		t.Fatalf("memoize: %v", err)
	}
	second, err := Memoize(ctx, c, "posts", []any{10}, nil, 0, compute)
	if err != nil {
		t.Fatalf("memoize: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one invocation, got %d", calls)
	}
	if len(first) != 2 || len(second) != 2 || second[0] != "a" {
		t.Fatalf("unexpected results %v / %v", first, second)
	}
}

func TestMemoizeNeverCachesFailures(t *testing.T) {
	c := New(NewMemory(), newTestLogger(), Options{})
	ctx := context.Background()

	calls := 0
	boom := errors.New("upstream down")
	compute := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 42, nil
	}

	if _, err := Memoize(ctx, c, "n", nil, nil, 0, compute); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
	got, err := Memoize(ctx, c, "n", nil, nil, 0, compute)
	if err != nil {
		t.Fatalf("memoize after failure: %v", err)
	}
	if got != 42 || calls != 2 {
		t.Fatalf("expected recomputation after failure, got %d calls=%d", got, calls)
	}
}
