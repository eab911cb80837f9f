package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// Queue is the redis list both the submitting processes and the worker share.
type Queue struct {
	client valkey.Client
	name   string
}

// NewQueue connects to the broker and verifies it is reachable.
func NewQueue(url, name string) (*Queue, func(), error) {
	if url == "" {
		return nil, nil, errors.New("tasks: broker url required")
	}
	if name == "" {
		return nil, nil, errors.New("tasks: queue name required")
	}

	option, err := valkey.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("tasks: parse broker url: %w", err)
	}
	option.AlwaysRESP2 = true
	option.ForceSingleClient = true
	option.DisableCache = true

	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, nil, fmt.Errorf("tasks: broker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("tasks: broker ping: %w", err)
	}
	return &Queue{client: client, name: name}, client.Close, nil
}

func (q *Queue) push(ctx context.Context, payload []byte) error {
	cmd := q.client.B().Lpush().Key(q.name).Element(string(payload)).Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("tasks: push: %w", err)
	}
	return nil
}

// pop blocks up to timeout for the next task; ok=false means the queue stayed
// empty for the whole wait.
func (q *Queue) pop(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	cmd := q.client.B().Brpop().Key(q.name).Timeout(timeout.Seconds()).Build()
	resp := q.client.Do(ctx, cmd)
	if err := resp.Error(); err != nil {
		if errors.Is(err, valkey.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("tasks: pop: %w", err)
	}
	values, err := resp.AsStrSlice()
	if err != nil {
		return nil, false, fmt.Errorf("tasks: pop decode: %w", err)
	}
	// BRPOP replies [queue, element].
	if len(values) != 2 {
		return nil, false, fmt.Errorf("tasks: pop returned %d values", len(values))
	}
	return []byte(values[1]), true, nil
}
