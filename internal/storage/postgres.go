package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/config"
)

const notifyChannel = "kv_changes"

const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore keeps values in the kv_store table and announces changes with NOTIFY
type PostgresStore struct {
	db     *sql.DB
	dsn    string
	logger *zap.Logger
}

// NewConnection opens and pings a lib/pq connection pool
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		logger.Error("Failed to create kv_store table", zap.Error(err))
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStore{db: db, dsn: cfg.DSN(), logger: logger}, nil
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value
		FROM kv_store
		WHERE key = $1
	`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Error("Failed to get storage key", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
		p.logger.Error("Failed to set storage key", zap.String("key", key), zap.Error(err))
		return err
	}
	// NOTIFY is delivered on commit
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key); err != nil {
		return fmt.Errorf("failed to notify change: %w", err)
	}
	return tx.Commit()
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	if err != nil {
		p.logger.Error("Failed to delete storage key", zap.String("key", key), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key); err != nil {
			return fmt.Errorf("failed to notify change: %w", err)
		}
	}
	return tx.Commit()
}

func (p *PostgresStore) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	listener := pq.NewListener(p.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			p.logger.Warn("Storage listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen for changes: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer listener.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// nil is sent after a reconnect; changes may have been missed
				if n == nil || n.Extra == key {
					notify(ch)
				}
			}
		}
	}()

	return ch, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
