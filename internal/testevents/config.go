package testevents

import "time"

// Config holds configuration for the award load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumAwards  int           // Number of awards to generate
	NumUsers   int           // Number of distinct users to spread awards over
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for awards
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Award represents an award request to be submitted
type Award struct {
	UserID         string `json:"user_id"`
	Action         string `json:"action"`
	IdempotencyKey string `json:"idempotency_key"`
	SessionID      string `json:"session_id,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

// AwardResult is the subset of the award response the test cares about
type AwardResult struct {
	XPGained   int64 `json:"xp_gained"`
	NewTotalXP int64 `json:"new_total_xp"`
	Level      int   `json:"level"`
	Duplicate  bool  `json:"duplicate"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	XP     int64  `json:"xp"`
}

// Stats holds test statistics
type Stats struct {
	AwardsGenerated    int
	AwardsSubmitted    int
	AwardsSuccessful   int
	AwardsDuplicate    int
	AwardsFailed       int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
