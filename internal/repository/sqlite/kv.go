package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sportiz/internal/domain"
	"sportiz/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// KeyValueRepository implements repository.KeyValueStore for SQLite
type KeyValueRepository struct {
	db *DB
}

// NewKeyValueRepository creates a new KeyValueRepository
func NewKeyValueRepository(db *DB) *KeyValueRepository {
	return &KeyValueRepository{db: db}
}

// Get retrieves the value stored under key
func (r *KeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, r.db, key)
}

// Set stores value under key, replacing any previous value
func (r *KeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, r.db, key, value)
}

// Delete removes key. Deleting a missing key is not an error.
func (r *KeyValueRepository) Delete(ctx context.Context, key string) error {
	return del(ctx, r.db, key)
}

// Update runs fn inside a single SQLite transaction
func (r *KeyValueRepository) Update(ctx context.Context, fn func(tx repository.KeyValueTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&kvTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// kvTx implements repository.KeyValueTx on an open transaction
type kvTx struct {
	tx *sql.Tx
}

func (t *kvTx) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, t.tx, key)
}

func (t *kvTx) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, t.tx, key, value)
}

func (t *kvTx) Delete(ctx context.Context, key string) error {
	return del(ctx, t.tx, key)
}

func get(ctx context.Context, q queryer, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, q queryer, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, timeNow().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func del(ctx context.Context, q queryer, key string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
