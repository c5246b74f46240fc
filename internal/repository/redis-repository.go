package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

// RedisRepo backs the short-lived state the auth flows need outside Mongo:
// the OAuth state parameter round-trip and the login lockout markers.
type RedisRepo struct {
	client *redis_v9.Client
}

func NewRedisRepo(client *redis_v9.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) SaveStructCached(ctx context.Context, key string, model any, ttl time.Duration) error {
	val, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("error saving struct to cache: %w", err)
	}
	if err := r.client.Set(ctx, key, val, ttl).Err(); err != nil {
		return fmt.Errorf("error saving struct to cache: %w", err)
	}
	return nil
}

func (r *RedisRepo) GetStructCached(ctx context.Context, key string, model any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return fmt.Errorf("error get struct in cache: %w", err)
	}
	return json.Unmarshal(raw, model)
}

func (r *RedisRepo) DeleteKey(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		log.Printf("error deleting cache key %s: %s", key, err)
	}
}

func (r *RedisRepo) SaveInt(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// GetInt returns 0 when the key is missing; absence is the common case for
// lockout markers.
func (r *RedisRepo) GetInt(ctx context.Context, key string) int64 {
	value, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return value
}
