package service

import (
	"context"
	"encoding/json"
	"sync"

	"sportiz/internal/domain"
	"sportiz/internal/logger"
	"sportiz/internal/repository"
)

// favouritesStore implements the FavouritesStore interface
type favouritesStore struct {
	reader repository.KeyValueReader
	writer repository.SnapshotWriter
	logger *logger.Logger

	mu     sync.RWMutex
	items  []domain.Match
	isDark bool
}

// NewFavouritesStore creates a new FavouritesStore.
// reader is used by Restore; every mutation enqueues a full snapshot on writer.
func NewFavouritesStore(reader repository.KeyValueReader, writer repository.SnapshotWriter) domain.FavouritesStore {
	return &favouritesStore{
		reader: reader,
		writer: writer,
		logger: logger.GetGlobalLogger().WithField("component", "favourites"),
		items:  []domain.Match{},
	}
}

// ToggleFavourite removes the favourite with m's ID if present, otherwise appends m
func (f *favouritesStore) ToggleFavourite(m domain.Match) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := true
	next := make([]domain.Match, 0, len(f.items)+1)
	for _, item := range f.items {
		if item.ID == m.ID {
			added = false
			continue
		}
		next = append(next, item)
	}
	if added {
		next = append(next, m)
	}
	f.items = next

	f.persist(repository.KeyFavourites, next)
	return added
}

// LoadFavourites replaces the list unconditionally
func (f *favouritesStore) LoadFavourites(items []domain.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = copyMatches(items)
}

// LoadTheme sets the theme flag unconditionally
func (f *favouritesStore) LoadTheme(isDark bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isDark = isDark
}

// ToggleTheme flips the theme flag and returns the new value
func (f *favouritesStore) ToggleTheme() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.isDark = !f.isDark
	f.persist(repository.KeyTheme, f.isDark)
	return f.isDark
}

// Restore hydrates favourites and theme from storage.
// Missing or malformed values leave the in-memory defaults in place.
func (f *favouritesStore) Restore(ctx context.Context) {
	if raw, err := f.reader.Get(ctx, repository.KeyFavourites); err == nil {
		var items []domain.Match
		if err := json.Unmarshal(raw, &items); err != nil {
			f.logger.Warn("Ignoring malformed favourites", map[string]interface{}{"error": err.Error()})
		} else {
			f.LoadFavourites(items)
		}
	}

	if raw, err := f.reader.Get(ctx, repository.KeyTheme); err == nil {
		var isDark bool
		if err := json.Unmarshal(raw, &isDark); err != nil {
			f.logger.Warn("Ignoring malformed theme", map[string]interface{}{"error": err.Error()})
		} else {
			f.LoadTheme(isDark)
		}
	}
}

// Items returns a copy of the favourites in insertion order
func (f *favouritesStore) Items() []domain.Match {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyMatches(f.items)
}

// IsFavourite reports whether a favourite with id exists
func (f *favouritesStore) IsFavourite(id string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, item := range f.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// IsDark returns the theme flag
func (f *favouritesStore) IsDark() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isDark
}

// persist enqueues a snapshot. Callers hold f.mu so snapshots reach the
// writer in mutation order.
func (f *favouritesStore) persist(key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		f.logger.Error("Failed to encode snapshot", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return
	}
	f.writer.Enqueue(key, raw)
}

func copyMatches(items []domain.Match) []domain.Match {
	out := make([]domain.Match, len(items))
	copy(out, items)
	return out
}
