package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values so they survive restarts.
type RedisStore[T any] struct {
	client *redis.Client
	prefix string
	policy Policy
	now    Clock
}

// NewRedisStore stores sessions under "<prefix><key>".
func NewRedisStore[T any](client *redis.Client, prefix string, policy Policy, now Clock) *RedisStore[T] {
	if now == nil {
		now = time.Now
	}
	return &RedisStore[T]{client: client, prefix: prefix, policy: policy, now: now}
}

func (s *RedisStore[T]) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore[T]) load(ctx context.Context, fullKey string) (entry[T], error) {
	var e entry[T]
	data, err := s.client.Get(ctx, fullKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return e, ErrNotFound
		}
		return e, fmt.Errorf("redis get %s: %w", fullKey, err)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode session %s: %w", fullKey, err)
	}
	return e, nil
}

// Get returns the session for key.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	e, err := s.load(ctx, s.key(key))
	if err != nil {
		return zero, err
	}
	if s.policy.Expired(e.CreatedAt, s.now()) {
		if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
			return zero, fmt.Errorf("redis del: %w", err)
		}
		return zero, ErrExpired
	}
	return e.Value, nil
}

// Set stores value, keeping the creation time of an existing session.
func (s *RedisStore[T]) Set(ctx context.Context, key string, value T) error {
	now := s.now()
	createdAt := now
	existing, err := s.load(ctx, s.key(key))
	switch {
	case err == nil:
		createdAt = existing.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return err
	}

	payload, err := json.Marshal(entry[T]{Value: value, CreatedAt: createdAt})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var ttl time.Duration
	if s.policy.TTL > 0 {
		ttl = createdAt.Add(s.policy.TTL + ExpiredGrace).Sub(now)
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	return s.client.Set(ctx, s.key(key), payload, ttl).Err()
}

// Delete removes the session for key.
func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Sweep removes stale sessions under the prefix.
func (s *RedisStore[T]) Sweep(ctx context.Context) (int, error) {
	if s.policy.TTL <= 0 {
		return 0, nil
	}

	now := s.now()
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		e, err := s.load(ctx, fullKey)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if !s.policy.Stale(e.CreatedAt, now) {
			continue
		}
		if err := s.client.Del(ctx, fullKey).Err(); err != nil {
			return removed, fmt.Errorf("redis del: %w", err)
		}
		removed++
	}
	return removed, iter.Err()
}
