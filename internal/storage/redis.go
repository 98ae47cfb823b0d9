package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/config"
)

// RedisStore keeps values as plain redis strings under "<namespace>:<key>"
// and announces every change on the "<namespace>:changes" channel.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig, namespace string, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStoreFromClient(client, namespace, logger), nil
}

// NewRedisStoreFromClient wraps an existing client; Close closes it
func NewRedisStoreFromClient(client *redis.Client, namespace string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, namespace: namespace, logger: logger}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	r.publish(ctx, key)
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	if n > 0 {
		r.publish(ctx, key)
	}
	return nil
}

func (r *RedisStore) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	sub := r.client.Subscribe(ctx, r.channel())
	// Wait for the subscription confirmation so no change published after Watch returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload == key {
					notify(ch)
				}
			}
		}
	}()

	return ch, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) publish(ctx context.Context, key string) {
	if err := r.client.Publish(ctx, r.channel(), key).Err(); err != nil {
		r.logger.Warn("Failed to publish storage change", zap.String("key", key), zap.Error(err))
	}
}

func (r *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", r.namespace, key)
}

func (r *RedisStore) channel() string {
	return r.namespace + ":changes"
}
