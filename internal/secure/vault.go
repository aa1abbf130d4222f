// Package secure seals small values (the session token) before they reach
// device storage, standing in for a platform keychain.
package secure

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"sportiz/internal/domain"
	"sportiz/internal/repository"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltKey is the storage key holding the key-derivation salt
const SaltKey = "sportiz_vault_salt"

const saltSize = 16

// argon2id parameters for deriving the sealing key from the passphrase
const (
	kdfTime    = 1
	kdfMemory  = 19 * 1024
	kdfThreads = 2
)

// ErrTampered is returned when a sealed value fails authentication
var ErrTampered = errors.New("sealed value failed authentication")

// Vault seals and opens values with XChaCha20-Poly1305
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the sealing key from passphrase and salt
func NewVault(passphrase string, salt []byte) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault passphrase cannot be empty")
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("vault salt must be at least %d bytes, got %d", saltSize, len(salt))
	}

	key := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Open loads the salt from store (creating it on first use) and returns a vault
func Open(ctx context.Context, store repository.KeyValueStore, passphrase string) (*Vault, error) {
	salt, err := store.Get(ctx, SaltKey)
	if errors.Is(err, domain.ErrNotFound) {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := store.Set(ctx, SaltKey, salt); err != nil {
			return nil, fmt.Errorf("failed to store salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	return NewVault(passphrase, salt)
}

// Seal encrypts plaintext; the random nonce is prepended to the output
func (v *Vault) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize(), v.aead.NonceSize()+len(plaintext)+v.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Unseal reverses Seal
func (v *Vault) Unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < v.aead.NonceSize()+v.aead.Overhead() {
		return nil, ErrTampered
	}
	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrTampered
	}
	return plaintext, nil
}

// SetSealed seals value and writes it under key
func (v *Vault) SetSealed(ctx context.Context, w repository.KeyValueWriter, key, value string) error {
	sealed, err := v.Seal([]byte(value))
	if err != nil {
		return err
	}
	return w.Set(ctx, key, sealed)
}

// GetSealed reads and unseals the value under key
func (v *Vault) GetSealed(ctx context.Context, r repository.KeyValueReader, key string) (string, error) {
	sealed, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	plaintext, err := v.Unseal(sealed)
	if err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	return string(plaintext), nil
}
