package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrUnknownWindow = errors.New("unknown leaderboard window")
	ErrInvalidPage   = errors.New("invalid leaderboard page")
	ErrNotRanked     = errors.New("user not ranked")
)
