package sqlite

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sportiz/internal/domain"
	"sportiz/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := NewDB(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to open database: %v", err)
	}

	if err := Migrate(db.DB); err != nil {
		db.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(tmpFile.Name())
	})

	return db
}

func TestKeyValue_GetMissingKey(t *testing.T) {
	repo := NewKeyValueRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "sportiz_favs")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeyValue_SetOverwritesAndDelete(t *testing.T) {
	repo := NewKeyValueRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, "sportiz_theme", []byte("false")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(ctx, "sportiz_theme", []byte("true")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := repo.Get(ctx, "sportiz_theme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "true" {
		t.Errorf("expected overwritten value true, got %q", value)
	}

	if err := repo.Delete(ctx, "sportiz_theme"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "sportiz_theme"); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
	if _, err := repo.Get(ctx, "sportiz_theme"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestKeyValue_UpdateCommitsAllWrites(t *testing.T) {
	repo := NewKeyValueRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.Update(ctx, func(tx repository.KeyValueTx) error {
		if err := tx.Set(ctx, "sportiz_users", []byte("[]")); err != nil {
			return err
		}
		if err := tx.Set(ctx, "sportiz_auth", []byte("{}")); err != nil {
			return err
		}
		// Reads inside the transaction see earlier writes
		value, err := tx.Get(ctx, "sportiz_users")
		if err != nil {
			return err
		}
		if string(value) != "[]" {
			t.Errorf("expected read-your-writes, got %q", value)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	for _, key := range []string{"sportiz_users", "sportiz_auth"} {
		if _, err := repo.Get(ctx, key); err != nil {
			t.Errorf("expected %s to be committed: %v", key, err)
		}
	}
}

func TestKeyValue_UpdateRollsBackOnError(t *testing.T) {
	repo := NewKeyValueRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Set(ctx, "sportiz_users", []byte("original")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	boom := errors.New("boom")
	err := repo.Update(ctx, func(tx repository.KeyValueTx) error {
		if err := tx.Set(ctx, "sportiz_users", []byte("changed")); err != nil {
			return err
		}
		if err := tx.Set(ctx, "sportiz_auth", []byte("{}")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to be returned, got %v", err)
	}

	value, err := repo.Get(ctx, "sportiz_users")
	if err != nil || string(value) != "original" {
		t.Errorf("expected original value after rollback, got %q (%v)", value, err)
	}
	if _, err := repo.Get(ctx, "sportiz_auth"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected rolled back key to be absent, got %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := Migrate(db.DB); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestNewDB_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "device", "sportiz.db")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %s, want %s", db.Path(), path)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("expected parent directory to exist: %v", err)
	}
}

// For any key and value, storing and reading back returns identical bytes.
func TestProperty_KeyValueRoundTrip(t *testing.T) {
	repo := NewKeyValueRepository(setupTestDB(t))
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("value round-trip preserves bytes", prop.ForAll(
		func(key string, value string) bool {
			if err := repo.Set(ctx, key, []byte(value)); err != nil {
				t.Logf("failed to set: %v", err)
				return false
			}
			got, err := repo.Get(ctx, key)
			if err != nil {
				t.Logf("failed to get: %v", err)
				return false
			}
			return bytes.Equal(got, []byte(value))
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
