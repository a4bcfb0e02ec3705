package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps the token under a namespaced key so several daemons can share one Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore connects to cfg.URL and stores the token for profile under "<namespace>:session:<profile>".
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, profile string) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.Namespace, profile, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client. A zero ttl keeps the key until deleted.
func NewRedisStoreWithClient(client *redis.Client, namespace, profile string, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = "storefront"
	}
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("%s:session:%s", namespace, profile),
		ttl:    ttl,
	}
}

func (r *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token from redis: %w", err)
	}
	return token, nil
}

func (r *RedisStore) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete token from redis: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
