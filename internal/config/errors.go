package config

import (
	"errors"
)

// Sentinel errors for config loading and validation, matchable with
// errors.Is from callers.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrLoadConfig    = errors.New("configuration load failed")
)
