package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// incrScript performs the increment and window bookkeeping server-side so the
// count and the expiry decision cannot interleave with other clients.
const incrScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

type redisCounterStore struct {
	client valkey.Client
	script *valkey.Lua
}

// NewRedisCounterStore connects the limiter to the shared counter store all
// server instances increment against.
func NewRedisCounterStore(url string) (CounterStore, func(), error) {
	if url == "" {
		return nil, nil, errors.New("ratelimit: redis url required")
	}

	option, err := valkey.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	option.AlwaysRESP2 = true
	option.ForceSingleClient = true
	option.DisableCache = true

	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, nil, fmt.Errorf("ratelimit: redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}

	store := &redisCounterStore{client: client, script: valkey.NewLuaScript(incrScript)}
	return store, client.Close, nil
}

func (s *redisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	resp := s.script.Exec(ctx, s.client, []string{key}, []string{fmt.Sprintf("%d", seconds)})
	values, err := resp.ToArray()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: counter incr: %w", err)
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: counter incr returned %d values", len(values))
	}
	count, err := values[0].ToInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: counter count: %w", err)
	}
	ttlSeconds, err := values[1].ToInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: counter ttl: %w", err)
	}
	if ttlSeconds < 0 {
		ttlSeconds = seconds
	}
	return count, time.Duration(ttlSeconds) * time.Second, nil
}
