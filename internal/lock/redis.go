package lock

import (
	"context"
	"fmt"
	"time"

	"coachly/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisSlotLocker struct {
	client *redis.Client
}

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSlotLocker(client *redis.Client) *RedisSlotLocker {
	return &RedisSlotLocker{client: client}
}

func (r *RedisSlotLocker) Acquire(ctx context.Context, coachID, date, slot string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := r.client.SetNX(ctx, slotKey(coachID, date, slot), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot lock: %w", err)
	}
	return ok, nil
}

func (r *RedisSlotLocker) Release(ctx context.Context, coachID, date, slot string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, slotKey(coachID, date, slot)).Err(); err != nil {
		return fmt.Errorf("failed to release slot lock: %w", err)
	}
	return nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
