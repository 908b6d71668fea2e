package testevents

import "time"

// HTTP status code constants.
const (
	StatusOK = 200
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	RebuildWaitDelay     = 5 * time.Second
	PercentageMultiplier = 100
)
