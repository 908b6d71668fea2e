// Package types contains common types used across the application
package types

import "time"

// Window identifies a leaderboard time window.
type Window string

// Supported leaderboard windows.
const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowAllTime Window = "all_time"
)

// KnownWindow reports whether w is a supported leaderboard window.
func KnownWindow(w Window) bool {
	switch w {
	case WindowDaily, WindowWeekly, WindowAllTime:
		return true
	default:
		return false
	}
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"user_id"`
	XP        int64     `json:"xp"`
	ReachedAt time.Time `json:"reached_at"`
}

// ProgressView is the read shape for a user's progression summary.
type ProgressView struct {
	UserID            string       `json:"user_id"`
	TotalXP           int64        `json:"total_xp"`
	Level             int          `json:"level"`
	XPIntoLevel       int64        `json:"xp_into_level"`
	XPToNextLevel     int64        `json:"xp_to_next_level"`
	CurrentStreakDays int          `json:"current_streak_days"`
	LongestStreakDays int          `json:"longest_streak_days"`
	LastActiveDate    time.Time    `json:"last_active_date"`
	CreatorTier       string       `json:"creator_tier"`
	Rewards           []RewardView `json:"rewards"`
}

// RewardView is the read shape for a granted mystery-box reward.
type RewardView struct {
	GrantID   string    `json:"grant_id"`
	RewardID  string    `json:"reward_id"`
	Tier      string    `json:"tier"`
	Name      string    `json:"name"`
	GrantedAt time.Time `json:"granted_at"`
}

// AchievementStatus is the read shape for a user's achievement list,
// covering both unlocked and in-progress achievements.
type AchievementStatus struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Repeatable  bool       `json:"repeatable"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	Progress    int64      `json:"progress"`
	Target      int64      `json:"target"`
}
