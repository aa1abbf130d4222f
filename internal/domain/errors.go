package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrValidation is returned when required input is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUser is returned when an email or username is already registered
	ErrDuplicateUser = errors.New("duplicate user")

	// ErrInvalidCredentials is returned when no account matches the email/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated is returned when an operation needs a signed-in user
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrLogout is returned when the persisted session could not be cleared
	ErrLogout = errors.New("logout failed")

	// ErrUpstream is returned when the fixture source responds with an error
	ErrUpstream = errors.New("upstream unavailable")
)

// UserFriendlyError wraps an error with a message meant to be shown verbatim
type UserFriendlyError struct {
	Err         error
	UserMessage string
}

// Error implements the error interface
func (e *UserFriendlyError) Error() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap returns the underlying error
func (e *UserFriendlyError) Unwrap() error {
	return e.Err
}

// NewUserFriendlyError creates a new user-friendly error
func NewUserFriendlyError(err error, userMessage string) *UserFriendlyError {
	return &UserFriendlyError{
		Err:         err,
		UserMessage: userMessage,
	}
}

// UserMessage extracts the message to display for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var friendly *UserFriendlyError
	if errors.As(err, &friendly) {
		return friendly.Error()
	}
	return err.Error()
}
