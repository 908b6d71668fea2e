package repository

import "errors"

// Sentinel kinds for progress store errors.
var (
	ErrNotFound        = errors.New("user not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicateKey    = errors.New("idempotency key already applied")
)
