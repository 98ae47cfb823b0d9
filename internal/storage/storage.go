package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/config"
)

// Keys shared by every client of the local store
const (
	KeyCart         = "cart"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// ErrNotFound is returned by Get when the key holds no value
var ErrNotFound = errors.New("storage: key not found")

// Store is durable local key-value storage shared by every process of one user.
// Concurrent writers overwrite each other; there is no locking across processes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Watch signals on the returned channel whenever key changes, until ctx is done.
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
	Close() error
}

// Open builds the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile:
		return NewFileStore(cfg.Path, logger)
	case config.StorageRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.Namespace, logger)
	case config.StoragePostgres:
		return NewPostgresStore(ctx, cfg.Database, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// notify performs a non-blocking send; a pending signal already covers this change
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
