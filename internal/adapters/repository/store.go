// Package repository defines the progress store interface and errors.
//
// The store owns all durable progression state: the per-user progress
// row, the append-only XP event log, unlock records, reward grants and
// the idempotency result cache. The idempotency check and the
// read-modify-write commit are atomic per user, so two concurrent
// retries can never both believe they are first.
package repository

import (
	"context"

	"github.com/okian/ladle/internal/domain/model"
)

// Commit bundles everything one award writes in a single atomic step.
// Version is the snapshot version the computation was based on; the
// commit fails with ErrVersionConflict when the record moved on.
type Commit struct {
	UserID   string
	Version  uint64
	Progress model.UserProgress
	Event    model.XpEvent

	// BonusEvents are derived XP deltas applied in the same commit,
	// e.g. achievement reward XP recorded under derived keys.
	BonusEvents []model.XpEvent

	Unlocks []model.UserAchievement
	Grants  []model.RewardGrant
	Result  model.ProgressionResult
}

// Store provides read/write access to progression state.
type Store interface {
	// Snapshot returns a copy of the user's progress and its version.
	// Unknown users get a zero-initialized progress at version 0, so the
	// first award for a user commits against version 0.
	Snapshot(ctx context.Context, userID string) (model.UserProgress, uint64)

	// Get returns a copy of the user's progress.
	// Returns ErrNotFound for unknown users.
	Get(ctx context.Context, userID string) (model.UserProgress, error)

	// CachedResult returns the result previously committed under the
	// given idempotency key, if any.
	CachedResult(ctx context.Context, userID, key string) (model.ProgressionResult, bool)

	// Apply commits an award atomically. Returns ErrVersionConflict when
	// the snapshot version is stale and ErrDuplicateKey when the
	// idempotency key was committed by a concurrent request.
	Apply(ctx context.Context, c Commit) error

	// UnlockCounts returns how many times each achievement has been
	// unlocked for the user.
	UnlockCounts(ctx context.Context, userID string) map[string]int

	// UnlockRecords returns the user's unlock history, oldest first.
	UnlockRecords(ctx context.Context, userID string) []model.UserAchievement

	// Grants returns the user's mystery-box grants, oldest first.
	Grants(ctx context.Context, userID string) []model.RewardGrant

	// History returns up to limit of the user's most recent XP events,
	// newest first.
	History(ctx context.Context, userID string, limit int) []model.XpEvent

	// SessionCount returns how many times an action has been applied
	// within the given client session.
	SessionCount(ctx context.Context, userID, sessionID string, action model.ActionType) int64

	// Count returns the number of users tracked by the store.
	Count(ctx context.Context) int
}
