package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session core
var (
	// Login errors
	ErrGated        = errors.New("login gated by lockout")
	ErrRejected     = errors.New("rejected by authority")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBusy         = errors.New("login already in progress")

	// Session errors
	ErrNoSession          = errors.New("no session")
	ErrStale              = errors.New("stale response")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Access errors
	ErrInvalidSubject = errors.New("invalid subject")
	ErrNothingStaged  = errors.New("no staged changes")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnsupported   = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single import
func New(text string) error {
	return errors.New(text)
}
