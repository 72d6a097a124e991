package core

import "errors"

var (
	// ErrNotFound covers both missing records and records owned by someone
	// else.
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
