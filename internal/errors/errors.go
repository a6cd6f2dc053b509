package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the fake API and the command line tools
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Controller errors
	ErrControllerNotFound = errors.New("controller not found")
	ErrDuplicateURL       = errors.New("a controller with this URL already exists")
	ErrNoFieldsToUpdate   = errors.New("no fields to update")

	// General errors
	ErrInternal = errors.New("internal error")
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
