package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotConfigured marks a missing required credential or setting. It is
	// fatal for the operation that needs it and is never retried silently.
	ErrNotConfigured  = errors.New("not configured")
	ErrInvalidAddress = errors.New("invalid address")
)
