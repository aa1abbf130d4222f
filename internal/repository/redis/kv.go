// Package redis stores the device key/value data in a Redis database.
// It is an alternative to the SQLite backend for setups where several
// processes share one profile.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sportiz/internal/domain"
	"sportiz/internal/repository"

	goredis "github.com/redis/go-redis/v9"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection with a short ping
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

// KeyValueRepository implements repository.KeyValueStore on Redis strings
type KeyValueRepository struct {
	client goredis.UniversalClient
}

// NewKeyValueRepository creates a new KeyValueRepository
func NewKeyValueRepository(client goredis.UniversalClient) *KeyValueRepository {
	return &KeyValueRepository{client: client}
}

// Get retrieves the value stored under key
func (r *KeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	return readValue(r.client.Get(ctx, key), key)
}

func readValue(cmd *goredis.StringCmd, key string) ([]byte, error) {
	value, err := cmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry
func (r *KeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (r *KeyValueRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// maxUpdateAttempts bounds how often Update reruns fn after a conflicting write
const maxUpdateAttempts = 16

// Update runs fn optimistically: every key fn reads is WATCHed on a dedicated
// connection and the buffered writes are applied in one MULTI/EXEC block.
// When another client changes a watched key first, EXEC aborts and fn runs again.
func (r *KeyValueRepository) Update(ctx context.Context, fn func(tx repository.KeyValueTx) error) error {
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		var fnErr error
		err := r.client.Watch(ctx, func(conn *goredis.Tx) error {
			tx := &bufferedTx{conn: conn, pending: make(map[string]*pendingWrite), watched: make(map[string]bool)}
			if fnErr = fn(tx); fnErr != nil {
				return fnErr
			}
			if len(tx.order) == 0 {
				return nil
			}

			_, err := conn.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				for _, key := range tx.order {
					write := tx.pending[key]
					if write.deleted {
						pipe.Del(ctx, key)
					} else {
						pipe.Set(ctx, key, write.value, 0)
					}
				}
				return nil
			})
			return err
		})
		switch {
		case fnErr != nil:
			return fnErr
		case errors.Is(err, goredis.TxFailedErr):
			continue
		case err != nil:
			return fmt.Errorf("failed to commit transaction: %w", err)
		default:
			return nil
		}
	}
	return fmt.Errorf("failed to commit transaction after %d attempts: %w", maxUpdateAttempts, goredis.TxFailedErr)
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// bufferedTx collects writes until commit; reads see pending writes first.
// Keys read from Redis are watched on conn before the read.
type bufferedTx struct {
	conn    *goredis.Tx
	pending map[string]*pendingWrite
	order   []string
	watched map[string]bool
}

func (t *bufferedTx) Get(ctx context.Context, key string) ([]byte, error) {
	if write, ok := t.pending[key]; ok {
		if write.deleted {
			return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
		}
		return append([]byte(nil), write.value...), nil
	}
	if !t.watched[key] {
		if err := t.conn.Watch(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("failed to watch key %q: %w", key, err)
		}
		t.watched[key] = true
	}
	return readValue(t.conn.Get(ctx, key), key)
}

func (t *bufferedTx) Set(_ context.Context, key string, value []byte) error {
	t.record(key, &pendingWrite{value: append([]byte(nil), value...)})
	return nil
}

func (t *bufferedTx) Delete(_ context.Context, key string) error {
	t.record(key, &pendingWrite{deleted: true})
	return nil
}

func (t *bufferedTx) record(key string, write *pendingWrite) {
	if _, seen := t.pending[key]; !seen {
		t.order = append(t.order, key)
	}
	t.pending[key] = write
}
