package models

import "errors"

var (
	// ErrNotFound is returned when a record is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password are required")
)
