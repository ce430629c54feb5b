package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	return &RedisTracker{client: client, ttl: ttl}
}

func (t *RedisTracker) Touch(ctx context.Context, username string) error {
	err := t.client.Set(ctx, seenKey(username), time.Now().UTC().Format(time.RFC3339), t.ttl).Err()
	if err != nil {
		return fmt.Errorf("touch %q: %w", username, err)
	}
	return nil
}

func (t *RedisTracker) IsOnline(ctx context.Context, username string) (bool, error) {
	n, err := t.client.Exists(ctx, seenKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("is online %q: %w", username, err)
	}
	return n > 0, nil
}

func (t *RedisTracker) ListOnline(ctx context.Context) ([]string, error) {
	var (
		users  = make([]string, 0)
		cursor uint64
	)

	for {
		keys, next, err := t.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan presence keys: %w", err)
		}

		for _, key := range keys {
			users = append(users, usernameFromKey(key))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Strings(users)
	return users, nil
}
