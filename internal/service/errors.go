package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when an operation needs a logged-in caller.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied is returned when the caller is logged in but may not touch the resource.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoPages is returned by RandomPage when the store is empty.
	ErrNoPages = errors.New("no pages available")
)

// ValidationError reports bad user input. Nothing is persisted when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
