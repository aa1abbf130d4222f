package repository

import (
	"context"
)

// KeyValueReader reads raw values by key.
// Get returns an error wrapping domain.ErrNotFound when the key is absent.
type KeyValueReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// KeyValueWriter mutates raw values by key
type KeyValueWriter interface {
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KeyValueTx is the view of the store inside an Update call.
// Reads observe writes made earlier in the same transaction.
type KeyValueTx interface {
	KeyValueReader
	KeyValueWriter
}

// KeyValueStore is the device-local storage shared by all stores.
// Keys are partitioned by purpose (favourites, theme, session, token, registry).
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter

	// Update runs fn in a transaction. Writes made through tx are applied
	// together when fn returns nil and discarded otherwise. A backend may run
	// fn again after a conflicting concurrent write, so fn must not keep
	// state across calls.
	Update(ctx context.Context, fn func(tx KeyValueTx) error) error
}

// Storage keys
const (
	KeyFavourites = "sportiz_favs"
	KeyTheme      = "sportiz_theme"
	KeySession    = "sportiz_auth"
	KeyToken      = "sportiz_token"
	KeyUsers      = "sportiz_users"
)

// SnapshotWriter persists a value in the background.
// Enqueue never blocks on storage and never reports write failures to the caller.
type SnapshotWriter interface {
	Enqueue(key string, value []byte)
}
