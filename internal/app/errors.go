package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidRequest marks malformed award requests. No state changes.
	ErrInvalidRequest = errors.New("invalid award request")

	// ErrRetryExhausted surfaces after the optimistic commit loop gave
	// up on a contended user. The caller may retry with the same key.
	ErrRetryExhausted = errors.New("award retry attempts exhausted")
)
