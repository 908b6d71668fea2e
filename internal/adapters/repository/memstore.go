package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount   = 8
	defaultHistoryLimit = 100
)

// userRecord holds all state for one user inside a shard.
type userRecord struct {
	progress model.UserProgress
	version  uint64

	// events is the bounded, newest-last XP event log.
	events []model.XpEvent

	// sessionCounts tracks applied actions per client session for
	// diminishing returns (key: sessionID + "|" + action).
	sessionCounts map[string]int64

	// unlocks are recorded in commit order; repeatable achievements
	// appear once per unlock.
	unlocks []model.UserAchievement

	grants []model.RewardGrant

	// results caches the committed outcome per idempotency key.
	results map[string]model.ProgressionResult
}

// shard groups users under one mutex. Awards for the same user
// serialize here; different users usually land on different shards.
type shard struct {
	mu    sync.RWMutex
	users map[string]*userRecord
}

// MemStore is a sharded in-memory Store implementation.
type MemStore struct {
	shardCount   int
	historyLimit int
	shards       []*shard
}

// NewMemStore creates an in-memory store with configuration options.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		shardCount:   defaultShardCount,
		historyLimit: defaultHistoryLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{users: make(map[string]*userRecord)}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)

	return s
}

// shardFor hashes the user id onto a shard.
func (s *MemStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// Snapshot returns a copy of the user's progress and its version.
func (s *MemStore) Snapshot(ctx context.Context, userID string) (model.UserProgress, uint64) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return model.UserProgress{
			UserID:       userID,
			ActionCounts: make(map[model.ActionType]int64),
		}, 0
	}
	return rec.progress.Clone(), rec.version
}

// Get returns a copy of the user's progress.
func (s *MemStore) Get(ctx context.Context, userID string) (model.UserProgress, error) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return model.UserProgress{}, ErrNotFound
	}
	return rec.progress.Clone(), nil
}

// CachedResult returns the committed result for an idempotency key.
func (s *MemStore) CachedResult(ctx context.Context, userID, key string) (model.ProgressionResult, bool) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return model.ProgressionResult{}, false
	}
	res, ok := rec.results[key]
	return res, ok
}

// Apply commits an award atomically under the shard lock: the version
// compare, the idempotency re-check and all writes happen in one
// critical section.
func (s *MemStore) Apply(ctx context.Context, c Commit) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	sh := s.shardFor(c.UserID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.users[c.UserID]
	if !ok {
		if c.Version != 0 {
			return ErrVersionConflict
		}
		rec = &userRecord{
			sessionCounts: make(map[string]int64),
			results:       make(map[string]model.ProgressionResult),
		}
		sh.users[c.UserID] = rec
	}

	if _, dup := rec.results[c.Event.IdempotencyKey]; dup {
		return ErrDuplicateKey
	}
	if rec.version != c.Version {
		return ErrVersionConflict
	}

	rec.progress = c.Progress.Clone()
	rec.version++

	rec.events = append(rec.events, c.Event)
	rec.events = append(rec.events, c.BonusEvents...)
	if len(rec.events) > s.historyLimit {
		rec.events = rec.events[len(rec.events)-s.historyLimit:]
	}

	if c.Event.SessionID != "" {
		rec.sessionCounts[sessionKey(c.Event.SessionID, c.Event.Action)]++
	}

	rec.unlocks = append(rec.unlocks, c.Unlocks...)
	rec.grants = append(rec.grants, c.Grants...)
	rec.results[c.Event.IdempotencyKey] = c.Result

	return nil
}

// UnlockCounts returns unlock counts per achievement id.
func (s *MemStore) UnlockCounts(ctx context.Context, userID string) map[string]int {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make(map[string]int)
	rec, ok := sh.users[userID]
	if !ok {
		return out
	}
	for _, u := range rec.unlocks {
		out[u.AchievementID]++
	}
	return out
}

// UnlockRecords returns the user's unlock history, oldest first.
func (s *MemStore) UnlockRecords(ctx context.Context, userID string) []model.UserAchievement {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return nil
	}
	out := make([]model.UserAchievement, len(rec.unlocks))
	copy(out, rec.unlocks)
	return out
}

// Grants returns the user's reward grants, oldest first.
func (s *MemStore) Grants(ctx context.Context, userID string) []model.RewardGrant {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return nil
	}
	out := make([]model.RewardGrant, len(rec.grants))
	copy(out, rec.grants)
	return out
}

// History returns up to limit recent XP events, newest first.
func (s *MemStore) History(ctx context.Context, userID string, limit int) []model.XpEvent {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok || limit <= 0 {
		return nil
	}
	n := len(rec.events)
	if limit > n {
		limit = n
	}
	out := make([]model.XpEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, rec.events[i])
	}
	return out
}

// SessionCount returns applied actions within one client session.
func (s *MemStore) SessionCount(ctx context.Context, userID, sessionID string, action model.ActionType) int64 {
	if sessionID == "" {
		return 0
	}
	sh := s.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.users[userID]
	if !ok {
		return 0
	}
	return rec.sessionCounts[sessionKey(sessionID, action)]
}

// Count returns the number of users tracked by the store.
func (s *MemStore) Count(ctx context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.users)
		sh.mu.RUnlock()
	}
	metrics.UpdateRepositoryRecordsTotal(total)
	return total
}

func sessionKey(sessionID string, action model.ActionType) string {
	return sessionID + "|" + string(action)
}
