package model

import "time"

// CreatorTier is the status tier for content-producing users.
// Tiers are threshold-based and monotonically non-decreasing.
type CreatorTier int

// Creator tiers from entry to top.
const (
	TierHomeCook CreatorTier = iota
	TierSousChef
	TierChef
	TierMasterChef
)

// String returns the wire name of the tier.
func (t CreatorTier) String() string {
	switch t {
	case TierHomeCook:
		return "home_cook"
	case TierSousChef:
		return "sous_chef"
	case TierChef:
		return "chef"
	case TierMasterChef:
		return "master_chef"
	default:
		return "home_cook"
	}
}

// UserProgress is the durable per-user progression record. It is owned by
// the progress store and mutated only through the award orchestrator.
type UserProgress struct {
	UserID            string
	TotalXP           int64 // non-negative, monotonically non-decreasing
	Level             int   // derived from TotalXP, never decreases
	CurrentStreakDays int
	LongestStreakDays int       // >= CurrentStreakDays
	LastActiveDate    time.Time // calendar day in the user's reference timezone
	CreatorTier       CreatorTier
	PityCount         int // consecutive low-tier mystery box draws

	// ActionCounts tracks how many times each action has been applied.
	// Used by count-based achievement criteria.
	ActionCounts map[ActionType]int64
}

// Clone returns a deep copy safe to hand out across goroutines.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.ActionCounts = make(map[ActionType]int64, len(p.ActionCounts))
	for k, v := range p.ActionCounts {
		out.ActionCounts[k] = v
	}
	return out
}

// UserAchievement records a single unlock of an achievement for a user.
// Unique per (user, achievement) unless the achievement is repeatable.
type UserAchievement struct {
	AchievementID string
	UnlockedAt    time.Time
}

// RewardGrant is an immutable mystery-box grant.
type RewardGrant struct {
	GrantID   string
	RewardID  string
	Tier      string
	Name      string
	GrantedAt time.Time
}

// StreakState describes the streak outcome of a single award.
type StreakState struct {
	Days     int  `json:"days"`
	Longest  int  `json:"longest"`
	Extended bool `json:"extended"`
	Reset    bool `json:"reset"`
}

// ProgressionResult is the consolidated outcome of one award. It is cached
// under the idempotency key so retried requests observe the same result.
type ProgressionResult struct {
	XPGained             int64         `json:"xp_gained"`
	NewTotalXP           int64         `json:"new_total_xp"`
	Level                int           `json:"level"`
	LeveledUp            bool          `json:"leveled_up"`
	Streak               StreakState   `json:"streak"`
	AchievementsUnlocked []string      `json:"achievements_unlocked"`
	RewardsGranted       []RewardGrant `json:"rewards_granted"`
	CreatorTier          string        `json:"creator_tier"`
	Duplicate            bool          `json:"duplicate"`
}
