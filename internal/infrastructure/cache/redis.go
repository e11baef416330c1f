package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Anvita004/transcriptpro/pkg/config"
)

// RedisStore is the Redis-backed Store implementation. Keys are namespaced so
// several collectors can share one Redis instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, namespace: cfg.Namespace}, nil
}

func (rs *RedisStore) key(key string) string {
	if rs.namespace == "" {
		return key
	}
	return rs.namespace + ":" + key
}

// Get retrieves a value by key
func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := rs.client.Get(ctx, rs.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a key-value pair
func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	return rs.client.Set(ctx, rs.key(key), value, 0).Err()
}

// Delete removes keys
func (rs *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = rs.key(k)
	}
	return rs.client.Del(ctx, namespaced...).Err()
}

// Close releases the underlying Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
