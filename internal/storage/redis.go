package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend, anahtarları namespace önekiyle Redis'te tutar.
// Birden fazla web örneği aynı ziyaretçi durumunu paylaşabilir.
type RedisBackend struct {
	client    *redis.Client
	namespace string
}

// NewRedisBackend, URL'den bağlanır ve Ping ile bağlantıyı doğrular.
func NewRedisBackend(ctx context.Context, redisURL, namespace string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisBackendFromClient(client, namespace), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, namespace string) *RedisBackend {
	return &RedisBackend{client: client, namespace: namespace}
}

func (rb *RedisBackend) key(k string) string {
	if rb.namespace == "" {
		return k
	}
	return rb.namespace + ":" + k
}

func (rb *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := rb.client.Get(ctx, rb.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (rb *RedisBackend) Set(ctx context.Context, key, value string) error {
	return rb.client.Set(ctx, rb.key(key), value, 0).Err()
}

func (rb *RedisBackend) Delete(ctx context.Context, key string) error {
	return rb.client.Del(ctx, rb.key(key)).Err()
}

// Close, bağlantı havuzunu kapatır.
func (rb *RedisBackend) Close() error {
	return rb.client.Close()
}
