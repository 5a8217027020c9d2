package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type redisCartStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartStateRepository keeps each cart under its storage key.
// A zero ttl keeps carts until they are deleted.
func NewRedisCartStateRepository(client *redis.Client, ttl time.Duration) CartStateRepository {
	return &redisCartStateRepository{client: client, ttl: ttl}
}

func (r *redisCartStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartStateNotFound
	}
	if err != nil {
		logger.Error("Failed to read cart state from Redis", err, map[string]interface{}{
			"storage_key": key,
		})
		return nil, err
	}
	return payload, nil
}

func (r *redisCartStateRepository) Set(ctx context.Context, key string, payload []byte) error {
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		logger.Error("Failed to write cart state to Redis", err, map[string]interface{}{
			"storage_key": key,
		})
		return err
	}
	return nil
}

func (r *redisCartStateRepository) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
