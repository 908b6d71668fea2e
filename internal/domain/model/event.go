// Package model contains domain models passed between layers.
package model

import "time"

// ActionType identifies the user action that triggered an XP award.
type ActionType string

// Supported action types.
const (
	ActionScanIngredient ActionType = "scan_ingredient"
	ActionCompleteRecipe ActionType = "complete_recipe"
	ActionDailyLogin     ActionType = "daily_login"
	ActionPublishRecipe  ActionType = "publish_recipe"
	ActionRateRecipe     ActionType = "rate_recipe"
)

// ActionAchievementBonus marks derived audit events carrying achievement
// reward XP. It is never accepted from callers.
const ActionAchievementBonus ActionType = "achievement_bonus"

// KnownAction reports whether t is one of the supported action types.
func KnownAction(t ActionType) bool {
	switch t {
	case ActionScanIngredient, ActionCompleteRecipe, ActionDailyLogin,
		ActionPublishRecipe, ActionRateRecipe:
		return true
	default:
		return false
	}
}

// XpEvent is the append-only audit record of an applied XP delta.
// One event corresponds to at most one applied delta.
type XpEvent struct {
	IdempotencyKey string     // caller-supplied token, unique per applied delta
	UserID         string     // subject user identifier
	Action         ActionType // what the user did
	RawAmount      int64      // base amount before session decay
	Amount         int64      // applied delta after session decay
	SessionID      string     // client session, scopes diminishing returns
	OccurredAt     time.Time  // event timestamp in the user's reference frame
}

// RankNotice is the asynchronous leaderboard-update notification emitted
// after an award commits. Leaderboard staleness is acceptable; notices may
// be dropped under backpressure.
type RankNotice struct {
	UserID     string
	Delta      int64
	NewTotal   int64
	OccurredAt time.Time
}
