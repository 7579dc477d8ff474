package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxExecutor is an interface that matches both *pgxpool.Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KVRepository is the durable local store backed by a single Postgres table.
type KVRepository struct {
	db PgxExecutor
}

func NewKVRepository(db PgxExecutor) *KVRepository {
	return &KVRepository{db: db}
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the kv_store table if it does not exist.
func (r *KVRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createKVTable); err != nil {
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

// Get returns the value stored under key and whether it exists.
func (r *KVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, "SELECT value FROM kv_store WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key
func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM kv_store WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
