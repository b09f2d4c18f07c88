// Package journal stores unconfirmed rs.ge submissions in Redis so the
// submission guard survives restarts and is shared between replicas.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tetrisge/rsge/rsge"
)

const keyPrefix = "rsge:submission:"

// Connect initializes a Redis client from a redis:// URL or host:port.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

type RedisJournal struct {
	client redis.Cmdable
}

var _ rsge.Journal = (*RedisJournal)(nil)

func NewRedisJournal(client redis.Cmdable) *RedisJournal {
	return &RedisJournal{client: client}
}

func (j *RedisJournal) Pending(ctx context.Context, digest string) (bool, error) {
	n, err := j.client.Exists(ctx, keyPrefix+digest).Result()
	if err != nil {
		return false, fmt.Errorf("check submission %s: %w", digest, err)
	}
	return n > 0, nil
}

func (j *RedisJournal) MarkPending(ctx context.Context, digest string, ttl time.Duration) error {
	if err := j.client.Set(ctx, keyPrefix+digest, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("mark submission %s: %w", digest, err)
	}
	return nil
}

func (j *RedisJournal) Forget(ctx context.Context, digest string) error {
	if err := j.client.Del(ctx, keyPrefix+digest).Err(); err != nil {
		return fmt.Errorf("forget submission %s: %w", digest, err)
	}
	return nil
}
