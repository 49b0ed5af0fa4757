package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. Handlers map them to HTTP
// statuses with errors.Is; anything else is an unexpected server error.
var (
	// ErrValidation: missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict: the email is already registered.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidCredentials: unknown email or wrong password, deliberately
	// not told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden: the caller is authenticated but may not touch the
	// resource.
	ErrForbidden = errors.New("not authorized")
	// ErrNotFound: a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invalidErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// notFound yields e.g. "lesson not found".
func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
