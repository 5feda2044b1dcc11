package errors

import "errors"

var (
	ErrNotFound = errors.New("session not found")

	ErrInvalidID = errors.New("invalid session ID format")

	ErrUserNotFound = errors.New("user not found")
)
