// Package auth emulates an account system entirely on the device.
//
// Accounts live in a registry under one storage key, the signed-in user under
// another, and the session token under a third key sealed by the vault.
// Passwords are stored and compared as entered and tokens carry no signature,
// so nothing here is a security boundary.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sportiz/internal/domain"
	"sportiz/internal/logger"
	"sportiz/internal/repository"
	"sportiz/internal/secure"
)

// timeNow is a variable for testing purposes
var timeNow = time.Now

// Messages shown verbatim to the user
const (
	MsgCredentialsRequired  = "Email and password are required"
	MsgUserExists           = "User with this email or username already exists"
	MsgInvalidCredentials   = "Invalid email or password"
	MsgNotLoggedIn          = "No user logged in"
	MsgUsernameTaken        = "Username already taken"
	MsgRegistrationFailed   = "Registration failed"
	MsgLoginFailed          = "Login failed"
	MsgLogoutFailed         = "Logout failed"
	MsgUpdateNameFailed     = "Failed to update name"
	MsgUpdateUsernameFailed = "Failed to update username"
)

// LocalStore implements domain.AuthStore over a key/value store
type LocalStore struct {
	store  repository.KeyValueStore
	vault  *secure.Vault
	logger *logger.Logger

	// opMu serialises operations so registry read-modify-write cycles never interleave
	opMu sync.Mutex

	mu        sync.RWMutex
	user      *domain.User
	status    domain.LoadStatus
	lastError string
}

// NewLocalStore creates a new LocalStore with no signed-in user
func NewLocalStore(store repository.KeyValueStore, vault *secure.Vault) *LocalStore {
	return &LocalStore{
		store:  store,
		vault:  vault,
		logger: logger.GetGlobalLogger().WithField("component", "auth"),
		status: domain.LoadIdle,
	}
}

var _ domain.AuthStore = (*LocalStore)(nil)

// Register creates an account and signs it in.
// username defaults to the local part of email and name defaults to username.
func (s *LocalStore) Register(ctx context.Context, email, password, username, name string) (*domain.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.begin()

	if email == "" || password == "" {
		return nil, s.fail(domain.NewUserFriendlyError(domain.ErrValidation, MsgCredentialsRequired))
	}

	if username == "" {
		username = domain.EmailLocalPart(email)
	}
	if name == "" {
		name = username
	}

	var user *domain.User
	err := s.store.Update(ctx, func(tx repository.KeyValueTx) error {
		users, err := readUsers(ctx, tx)
		if err != nil {
			return err
		}

		for _, u := range users {
			if u.Email == email || u.Username == username {
				return domain.NewUserFriendlyError(domain.ErrDuplicateUser, MsgUserExists)
			}
		}

		now := timeNow()
		record := domain.LocalUserRecord{
			ID:        newUserID(users, now),
			Email:     email,
			Username:  username,
			Name:      name,
			Password:  password,
			CreatedAt: now.UTC().Format("2006-01-02T15:04:05.000Z"),
		}
		users = append(users, record)

		if err := writeJSON(ctx, tx, repository.KeyUsers, users); err != nil {
			return err
		}

		user = record.User(newToken(record.ID, now))
		return s.writeSession(ctx, tx, user)
	})
	if err != nil {
		return nil, s.fail(friendly(err, MsgRegistrationFailed))
	}

	s.signIn(user)
	s.logger.Info("User registered", map[string]interface{}{"user_id": user.ID})
	return copyUser(user), nil
}

// Login signs in the account whose email and password both match exactly.
// A fresh token is issued; the registry is not modified.
func (s *LocalStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.begin()

	var user *domain.User
	err := s.store.Update(ctx, func(tx repository.KeyValueTx) error {
		users, err := readUsers(ctx, tx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.Email == email && u.Password == password {
				user = u.User(newToken(u.ID, timeNow()))
				return s.writeSession(ctx, tx, user)
			}
		}
		return domain.NewUserFriendlyError(domain.ErrInvalidCredentials, MsgInvalidCredentials)
	})
	if err != nil {
		return nil, s.fail(friendly(err, MsgLoginFailed))
	}

	s.signIn(user)
	s.logger.Info("User logged in", map[string]interface{}{"user_id": user.ID})
	return copyUser(user), nil
}

// LoadPersistedSession restores the signed-in user saved by a previous run.
// It returns nil, nil when the session or the token is absent or unreadable.
func (s *LocalStore) LoadPersistedSession(ctx context.Context) (*domain.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	raw, err := s.store.Get(ctx, repository.KeySession)
	if err != nil {
		s.logReadFailure(repository.KeySession, err)
		return nil, nil
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		s.logger.Warn("Ignoring malformed session", map[string]interface{}{"error": err.Error()})
		return nil, nil
	}
	if user.ID == "" {
		s.logger.Warn("Ignoring session without a user id", nil)
		return nil, nil
	}

	token, err := s.vault.GetSealed(ctx, s.store, repository.KeyToken)
	if err != nil {
		s.logReadFailure(repository.KeyToken, err)
		return nil, nil
	}
	if token == "" {
		return nil, nil
	}
	user.AccessToken = token

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	return copyUser(&user), nil
}

// Logout removes the persisted session and token
func (s *LocalStore) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	err := s.store.Update(ctx, func(tx repository.KeyValueTx) error {
		if err := tx.Delete(ctx, repository.KeySession); err != nil {
			return err
		}
		return tx.Delete(ctx, repository.KeyToken)
	})
	if err != nil {
		s.logger.Error("Failed to clear session", map[string]interface{}{"error": err.Error()})
		return &domain.UserFriendlyError{
			Err:         fmt.Errorf("%w: %v", domain.ErrLogout, err),
			UserMessage: MsgLogoutFailed,
		}
	}

	s.mu.Lock()
	s.user = nil
	s.lastError = ""
	s.mu.Unlock()
	return nil
}

// UpdateName changes the display name of the signed-in user
func (s *LocalStore) UpdateName(ctx context.Context, name string) error {
	return s.updateProfile(ctx, MsgUpdateNameFailed, func(users []domain.LocalUserRecord, user *domain.User) error {
		user.Name = name
		for i := range users {
			if users[i].ID == user.ID {
				users[i].Name = name
			}
		}
		return nil
	})
}

// UpdateUsername changes the username of the signed-in user.
// It fails when another account already holds username.
func (s *LocalStore) UpdateUsername(ctx context.Context, username string) error {
	return s.updateProfile(ctx, MsgUpdateUsernameFailed, func(users []domain.LocalUserRecord, user *domain.User) error {
		for _, u := range users {
			if u.Username == username && u.ID != user.ID {
				return domain.NewUserFriendlyError(domain.ErrDuplicateUser, MsgUsernameTaken)
			}
		}

		user.Username = username
		for i := range users {
			if users[i].ID == user.ID {
				users[i].Username = username
			}
		}
		return nil
	})
}

// updateProfile applies edit to the registry and the session in one transaction.
// Only the error message is recorded on failure; the shared status is left alone.
func (s *LocalStore) updateProfile(ctx context.Context, failMsg string, edit func([]domain.LocalUserRecord, *domain.User) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.CurrentUser()
	if current == nil {
		return s.recordError(domain.NewUserFriendlyError(domain.ErrNotAuthenticated, MsgNotLoggedIn))
	}

	var updated *domain.User
	err := s.store.Update(ctx, func(tx repository.KeyValueTx) error {
		users, err := readUsers(ctx, tx)
		if err != nil {
			return err
		}
		updated = copyUser(current)
		if err := edit(users, updated); err != nil {
			return err
		}
		if err := writeJSON(ctx, tx, repository.KeyUsers, users); err != nil {
			return err
		}
		return writeJSON(ctx, tx, repository.KeySession, updated)
	})
	if err != nil {
		return s.recordError(friendly(err, failMsg))
	}

	s.mu.Lock()
	s.user = updated
	s.mu.Unlock()
	return nil
}

// CurrentUser returns a copy of the signed-in user, or nil
func (s *LocalStore) CurrentUser() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// State returns a snapshot of the store
func (s *LocalStore) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := domain.AuthState{
		User:   copyUser(s.user),
		Status: s.status,
		Error:  s.lastError,
	}
	if s.user != nil {
		state.Token = s.user.AccessToken
	}
	return state
}

// ClearError forgets the last failure message
func (s *LocalStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

func (s *LocalStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = domain.LoadLoading
	s.lastError = ""
}

func (s *LocalStore) signIn(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.status = domain.LoadIdle
	s.lastError = ""
}

// fail records err as the outcome of a register or login attempt
func (s *LocalStore) fail(err *domain.UserFriendlyError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = domain.LoadFailed
	s.lastError = err.Error()
	return err
}

// recordError records err without touching the shared status
func (s *LocalStore) recordError(err *domain.UserFriendlyError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
	return err
}

// readUsers loads the registry. A missing registry reads as empty; an unreadable
// or malformed one is an error so the caller never rewrites it.
func readUsers(ctx context.Context, r repository.KeyValueReader) ([]domain.LocalUserRecord, error) {
	raw, err := r.Get(ctx, repository.KeyUsers)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.LocalUserRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user registry: %w", err)
	}

	var users []domain.LocalUserRecord
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to decode user registry: %w", err)
	}
	return users, nil
}

// writeSession persists the session record and mirrors the token into the sealed key
func (s *LocalStore) writeSession(ctx context.Context, tx repository.KeyValueTx, user *domain.User) error {
	if err := writeJSON(ctx, tx, repository.KeySession, user); err != nil {
		return err
	}
	if err := s.vault.SetSealed(ctx, tx, repository.KeyToken, user.AccessToken); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (s *LocalStore) logReadFailure(key string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	s.logger.Warn("Failed to read auth data", map[string]interface{}{
		"key":   key,
		"error": err.Error(),
	})
}

func writeJSON(ctx context.Context, w repository.KeyValueWriter, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := w.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// friendly returns err when it already carries a user message, otherwise
// wraps it with fallback as the visible message.
func friendly(err error, fallback string) *domain.UserFriendlyError {
	var ufe *domain.UserFriendlyError
	if errors.As(err, &ufe) {
		return ufe
	}
	return domain.NewUserFriendlyError(err, fallback)
}

// newUserID returns user_<unix ms>, or user_<uuid> if that id is already taken
func newUserID(users []domain.LocalUserRecord, now time.Time) string {
	id := fmt.Sprintf("user_%d", now.UnixMilli())
	for _, u := range users {
		if u.ID == id {
			return "user_" + uuid.NewString()
		}
	}
	return id
}

// newToken builds the opaque session token token_<user id>_<unix ms>
func newToken(userID string, now time.Time) string {
	return fmt.Sprintf("token_%s_%d", userID, now.UnixMilli())
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
