package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/media-uniquer/internal/model"
)

const redisKeyPrefix = "task:status:"

// RedisStore keeps records in Redis. Every write refreshes the key TTL, so
// Redis itself expires stale records.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client; ttl is applied to every record on write.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, id string, st model.Status) error {
	data, err := encode(st)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put: failed to save status: %w", err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Status, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Status{}, ErrStatusNotFound
		}
		return model.Status{}, fmt.Errorf("get: failed to get status: %w", err)
	}

	st, err := decode(data)
	if err != nil {
		return model.Status{}, fmt.Errorf("get: %w", err)
	}

	return st, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete: failed to delete status: %w", err)
	}

	if n == 0 {
		return ErrStatusNotFound
	}

	return nil
}

// Expire is a no-op: keys carry their own TTL.
func (s *RedisStore) Expire(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
