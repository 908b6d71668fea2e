package scoring

import "errors"

// Sentinel kinds for valuation errors.
var (
	ErrUnknownAction = errors.New("unknown action type")
)
