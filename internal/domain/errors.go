package domain

import "errors"

var (
	// ErrNotFound reports a resource the backend no longer knows.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput rejects a write before it is sent.
	ErrInvalidInput = errors.New("invalid input")
)
