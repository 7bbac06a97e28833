package main

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound       = errors.New("book not found")
	ErrBookNotAvailable   = errors.New("book not available")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve *ValidationError) Error() string {
	return ve.Field + " " + ve.Message
}

// ConflictError reports a uniqueness violation on a given field.
type ConflictError struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (ce *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already in use", ce.Field, ce.Value)
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflictError reports whether err carries a *ConflictError.
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
