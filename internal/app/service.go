// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// The service is the award orchestrator: it owns the exactly-once
// idempotency guarantee, the per-user optimistic commit loop, and the
// sequencing of the valuer, leveling, streak, achievement and reward
// stages after the XP delta is computed.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/ladle/internal/adapters/leaderboard"
	noticequeue "github.com/okian/ladle/internal/adapters/mq/queue"
	workerpool "github.com/okian/ladle/internal/adapters/mq/worker"
	repository "github.com/okian/ladle/internal/adapters/repository"
	"github.com/okian/ladle/internal/domain/achievements"
	"github.com/okian/ladle/internal/domain/leveling"
	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/internal/domain/rewards"
	"github.com/okian/ladle/internal/domain/scoring"
	"github.com/okian/ladle/internal/domain/streak"
	"github.com/okian/ladle/internal/domain/types"
	"github.com/okian/ladle/pkg/logger"
	"github.com/okian/ladle/pkg/metrics"
)

// AwardRequest carries one action-trigger event into the orchestrator.
type AwardRequest struct {
	UserID         string
	Action         model.ActionType
	IdempotencyKey string
	SessionID      string
	Timezone       string // IANA name, e.g. "Asia/Tokyo"; empty means UTC
	OccurredAt     time.Time
}

// Service implements the API dependencies for the progression engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	queue    noticequeue.Queue
	board    *leaderboard.Board
	pool     *workerpool.Pool
	valuer   scoring.Valuer
	levels   *leveling.Calculator
	unlocker *achievements.Evaluator
	boxes    *rewards.Generator

	// Configuration
	workerCount     int
	queueSize       int
	shardCount      int
	historyLimit    int
	maxPerPage      int
	graceDays       int
	rebuildInterval time.Duration
	retryAttempts   int
	retryBackoff    time.Duration
	sessionDecay    float64
	decayFloor      float64
	levelBase       int64
	levelGrowth     float64
	maxLevel        int
	pityThreshold   int
	actionXP        map[string]int64
	rewardTable     []rewards.Item
	registry        []achievements.Achievement

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ranker workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the rank notice queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the number of shards in the progress store.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithHistoryLimit bounds the per-user XP event history.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithMaxLeaderboardPerPage caps leaderboard page sizes.
func WithMaxLeaderboardPerPage(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxPerPage = limit
		}
	}
}

// WithStreakGraceDays extends the streak window past the next calendar day.
func WithStreakGraceDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.graceDays = days
		}
	}
}

// WithRebuildInterval sets how often leaderboard snapshots are refreshed.
func WithRebuildInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.rebuildInterval = d
		}
	}
}

// WithRetryPolicy bounds the optimistic commit loop.
func WithRetryPolicy(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithSessionDecay sets the repeat-action decay multiplier and floor.
func WithSessionDecay(decay, floor float64) Option {
	return func(s *Service) {
		if decay > 0 && decay <= 1 {
			s.sessionDecay = decay
		}
		if floor > 0 && floor <= 1 {
			s.decayFloor = floor
		}
	}
}

// WithLevelCurve shapes the geometric level curve.
func WithLevelCurve(base int64, growth float64, maxLevel int) Option {
	return func(s *Service) {
		if base > 0 {
			s.levelBase = base
		}
		if growth > 1 {
			s.levelGrowth = growth
		}
		if maxLevel > 1 {
			s.maxLevel = maxLevel
		}
	}
}

// WithPityThreshold guarantees a high-tier reward after n low-tier draws.
func WithPityThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pityThreshold = n
		}
	}
}

// WithActionXP overrides base XP amounts per action.
func WithActionXP(amounts map[string]int64) Option {
	return func(s *Service) {
		if len(amounts) > 0 {
			s.actionXP = amounts
		}
	}
}

// WithRewardTable replaces the mystery-box reward table.
func WithRewardTable(table []rewards.Item) Option {
	return func(s *Service) {
		if len(table) > 0 {
			s.rewardTable = table
		}
	}
}

// WithAchievementRegistry replaces the achievement registry.
func WithAchievementRegistry(registry []achievements.Achievement) Option {
	return func(s *Service) {
		if len(registry) > 0 {
			s.registry = registry
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU() * 4,
		queueSize:       100_000,
		shardCount:      8,
		historyLimit:    100,
		maxPerPage:      100,
		graceDays:       0,
		rebuildInterval: 2 * time.Second,
		retryAttempts:   8,
		retryBackoff:    2 * time.Millisecond,
		sessionDecay:    0.5,
		decayFloor:      0.25,
		levelBase:       100,
		levelGrowth:     1.5,
		maxLevel:        100,
		pityThreshold:   5,
		stopCh:          make(chan struct{}),
		logger:          nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting progression service...")

	// Initialize components
	s.store = repository.NewMemStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithHistoryLimit(s.historyLimit),
	)
	s.queue = noticequeue.NewInMemoryQueue(
		noticequeue.WithCapacity(s.queueSize),
	)
	s.board = leaderboard.NewBoard(ctx)
	s.valuer = scoring.NewTableValuer(
		scoring.WithBaseAmounts(s.actionXP),
		scoring.WithSessionDecay(s.sessionDecay, s.decayFloor),
	)
	s.levels = leveling.NewCalculator(
		leveling.WithCurve(s.levelBase, s.levelGrowth),
		leveling.WithMaxLevel(s.maxLevel),
	)
	s.unlocker = achievements.NewEvaluator(
		achievements.WithRegistry(s.registry),
	)
	s.boxes = rewards.NewGenerator(
		rewards.WithTable(s.rewardTable),
		rewards.WithPityThreshold(s.pityThreshold),
	)

	// Create and start the ranker pool draining notices into the board
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.board)
	s.pool.Start(ctx)

	go s.rebuildLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "progression service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("shards", s.shardCount),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping progression service...")

	// Shutdown closes the queue first so workers drain remaining notices
	if s.pool != nil {
		_ = s.pool.Shutdown(context.Background())
	}

	// Signal the rebuild loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "progression service stopped")
}

// rebuildLoop refreshes leaderboard snapshots on a fixed interval so
// reads never pay for a rebuild after a quiet period.
func (s *Service) rebuildLoop(ctx context.Context) {
	ticker := time.NewTicker(s.rebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.board.Rebuild(ctx)
		}
	}
}

// AwardXP applies one action-trigger event exactly once and returns the
// consolidated progression delta. Duplicate idempotency keys return the
// originally committed result with Duplicate set.
func (s *Service) AwardXP(ctx context.Context, req AwardRequest) (model.ProgressionResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAwardLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if err := validate(req); err != nil {
		metrics.RecordAwardRejected()
		return model.ProgressionResult{}, err
	}

	at := req.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	loc := time.UTC
	if req.Timezone != "" {
		l, err := time.LoadLocation(req.Timezone)
		if err != nil {
			metrics.RecordAwardRejected()
			return model.ProgressionResult{}, fmt.Errorf("%w: timezone %q", ErrInvalidRequest, req.Timezone)
		}
		loc = l
	}

	// Fast path: the key was already applied.
	if cached, ok := s.store.CachedResult(ctx, req.UserID, req.IdempotencyKey); ok {
		metrics.RecordAwardDuplicate()
		cached.Duplicate = true
		return cached, nil
	}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		result, err := s.applyOnce(ctx, req, at, loc)
		switch {
		case err == nil:
			return result, nil
		case errors.Is(err, repository.ErrVersionConflict):
			metrics.RecordVersionConflict()
			if !sleep(ctx, s.retryBackoff<<uint(attempt)) {
				return model.ProgressionResult{}, ctx.Err()
			}
		case errors.Is(err, repository.ErrDuplicateKey):
			// A concurrent retry with the same key won the race; its
			// committed result is authoritative.
			if cached, ok := s.store.CachedResult(ctx, req.UserID, req.IdempotencyKey); ok {
				metrics.RecordAwardDuplicate()
				cached.Duplicate = true
				return cached, nil
			}
			return model.ProgressionResult{}, err
		default:
			metrics.RecordAwardRejected()
			return model.ProgressionResult{}, err
		}
	}

	metrics.RecordErrorByComponent("orchestrator", "retry_exhausted")
	return model.ProgressionResult{}, fmt.Errorf("%w: user %s", ErrRetryExhausted, req.UserID)
}

// applyOnce runs the full pipeline against one snapshot and commits it
// atomically. A version conflict means another award for the same user
// landed in between; the caller retries against a fresh snapshot.
func (s *Service) applyOnce(ctx context.Context, req AwardRequest, at time.Time, loc *time.Location) (model.ProgressionResult, error) {
	progress, version := s.store.Snapshot(ctx, req.UserID)

	var prior int64
	if req.SessionID != "" {
		prior = s.store.SessionCount(ctx, req.UserID, req.SessionID, req.Action)
	}

	val, err := s.valuer.Value(ctx, scoring.Input{
		Action:         req.Action,
		PriorInSession: prior,
	})
	if err != nil {
		return model.ProgressionResult{}, err
	}

	baseLevel := progress.Level
	if baseLevel < 1 {
		baseLevel = s.levels.Level(progress.TotalXP).Level
	}

	next := progress.Clone()
	next.UserID = req.UserID
	next.TotalXP += val.Amount
	if next.ActionCounts == nil {
		next.ActionCounts = make(map[model.ActionType]int64)
	}
	next.ActionCounts[req.Action]++

	// Streak transition in the user's reference timezone.
	st := streak.Advance(progress.LastActiveDate, progress.CurrentStreakDays, progress.LongestStreakDays, at, loc, s.graceDays)
	next.CurrentStreakDays = st.Days
	next.LongestStreakDays = st.Longest
	if !st.Same {
		next.LastActiveDate = at
	}

	next.Level = maxInt(baseLevel, s.levels.Level(next.TotalXP).Level)

	// First achievement pass against the post-award snapshot.
	unlockCounts := s.store.UnlockCounts(ctx, req.UserID)
	unlocked := s.unlocker.Evaluate(next, unlockCounts)

	// Achievement reward XP is applied in the same commit under derived
	// keys. The boosted snapshot gets exactly one more evaluation pass;
	// unlocks from that pass grant no further XP, which bounds the
	// achievement-reward recursion.
	var bonusEvents []model.XpEvent
	var bonusTotal int64
	for _, a := range unlocked {
		if a.XPReward <= 0 {
			continue
		}
		bonusTotal += a.XPReward
		bonusEvents = append(bonusEvents, model.XpEvent{
			IdempotencyKey: req.IdempotencyKey + ":achv:" + a.ID,
			UserID:         req.UserID,
			Action:         model.ActionAchievementBonus,
			RawAmount:      a.XPReward,
			Amount:         a.XPReward,
			SessionID:      req.SessionID,
			OccurredAt:     at,
		})
	}
	if bonusTotal > 0 {
		next.TotalXP += bonusTotal
		next.Level = maxInt(next.Level, s.levels.Level(next.TotalXP).Level)

		counts := make(map[string]int, len(unlockCounts)+len(unlocked))
		for id, n := range unlockCounts {
			counts[id] = n
		}
		for _, a := range unlocked {
			counts[a.ID]++
		}
		unlocked = append(unlocked, s.unlocker.Evaluate(next, counts)...)
	}

	leveledUp := next.Level > baseLevel

	// Mystery boxes: one draw per level-up, one per award with unlocks.
	draws := 0
	if leveledUp {
		draws++
	}
	if len(unlocked) > 0 {
		draws++
	}
	grants := make([]model.RewardGrant, 0, draws)
	pity := next.PityCount
	for i := 0; i < draws; i++ {
		item, newPity := s.boxes.Draw(pity)
		pity = newPity
		grants = append(grants, s.boxes.Grant(item, at))
	}
	next.PityCount = pity

	// Creator tier is monotonic; re-evaluation on unchanged state is a
	// no-op.
	if tier := rewards.TierFor(next.TotalXP, next.ActionCounts[model.ActionPublishRecipe]); tier > next.CreatorTier {
		next.CreatorTier = tier
	}
	tierPromoted := next.CreatorTier > progress.CreatorTier

	unlockIDs := make([]string, 0, len(unlocked))
	unlockRecords := make([]model.UserAchievement, 0, len(unlocked))
	for _, a := range unlocked {
		unlockIDs = append(unlockIDs, a.ID)
		unlockRecords = append(unlockRecords, model.UserAchievement{
			AchievementID: a.ID,
			UnlockedAt:    at,
		})
	}

	result := model.ProgressionResult{
		XPGained:   val.Amount + bonusTotal,
		NewTotalXP: next.TotalXP,
		Level:      next.Level,
		LeveledUp:  leveledUp,
		Streak: model.StreakState{
			Days:     st.Days,
			Longest:  st.Longest,
			Extended: st.Extended,
			Reset:    st.Reset,
		},
		AchievementsUnlocked: unlockIDs,
		RewardsGranted:       grants,
		CreatorTier:          next.CreatorTier.String(),
	}

	commit := repository.Commit{
		UserID:   req.UserID,
		Version:  version,
		Progress: next,
		Event: model.XpEvent{
			IdempotencyKey: req.IdempotencyKey,
			UserID:         req.UserID,
			Action:         req.Action,
			RawAmount:      val.RawAmount,
			Amount:         val.Amount,
			SessionID:      req.SessionID,
			OccurredAt:     at,
		},
		BonusEvents: bonusEvents,
		Unlocks:     unlockRecords,
		Grants:      grants,
		Result:      result,
	}
	if err := s.store.Apply(ctx, commit); err != nil {
		return model.ProgressionResult{}, err
	}

	s.recordAwardMetrics(result, st, unlockIDs, grants, tierPromoted)

	// Fire-and-forget rank notice; a full queue is logged and dropped,
	// the leaderboard catches up from the next award.
	notice := model.RankNotice{
		UserID:     req.UserID,
		Delta:      result.XPGained,
		NewTotal:   result.NewTotalXP,
		OccurredAt: at,
	}
	if !s.queue.Enqueue(ctx, notice) {
		s.logger.Warn(ctx, "rank notice dropped",
			logger.String("userID", req.UserID),
			logger.Int64("newTotal", result.NewTotalXP),
		)
	}

	return result, nil
}

// recordAwardMetrics emits per-award counters after a successful commit.
func (s *Service) recordAwardMetrics(result model.ProgressionResult, st streak.Result, unlockIDs []string, grants []model.RewardGrant, tierPromoted bool) {
	metrics.RecordAwardApplied()
	metrics.RecordXPGranted(float64(result.XPGained))
	if result.LeveledUp {
		metrics.RecordLevelUp()
	}
	if st.Extended {
		metrics.RecordStreakContinue()
	}
	if st.Reset {
		metrics.RecordStreakReset()
	}
	for _, id := range unlockIDs {
		metrics.RecordUnlock(id)
	}
	for _, g := range grants {
		metrics.RecordRewardDraw(g.Tier)
	}
	if tierPromoted {
		metrics.RecordTierPromotion()
	}
}

// Progress returns the user's progression summary.
func (s *Service) Progress(ctx context.Context, userID string) (types.ProgressView, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return types.ProgressView{}, err
	}

	lvl := s.levels.Level(p.TotalXP)
	grants := s.store.Grants(ctx, userID)
	views := make([]types.RewardView, len(grants))
	for i, g := range grants {
		views[i] = types.RewardView{
			GrantID:   g.GrantID,
			RewardID:  g.RewardID,
			Tier:      g.Tier,
			Name:      g.Name,
			GrantedAt: g.GrantedAt,
		}
	}

	return types.ProgressView{
		UserID:            p.UserID,
		TotalXP:           p.TotalXP,
		Level:             p.Level,
		XPIntoLevel:       lvl.Into,
		XPToNextLevel:     lvl.ToNext,
		CurrentStreakDays: p.CurrentStreakDays,
		LongestStreakDays: p.LongestStreakDays,
		LastActiveDate:    p.LastActiveDate,
		CreatorTier:       p.CreatorTier.String(),
		Rewards:           views,
	}, nil
}

// Leaderboard returns one page of a leaderboard window.
func (s *Service) Leaderboard(ctx context.Context, window types.Window, page, perPage int) ([]types.Entry, error) {
	if perPage > s.maxPerPage {
		perPage = s.maxPerPage
	}
	return s.board.Page(ctx, window, page, perPage)
}

// RankOf returns the user's entry in a leaderboard window.
func (s *Service) RankOf(ctx context.Context, window types.Window, userID string) (types.Entry, error) {
	return s.board.Rank(ctx, window, userID)
}

// Achievements returns the full achievement list for a user, unlocked
// and in-progress alike. Unknown users get the registry with zero
// progress.
func (s *Service) Achievements(ctx context.Context, userID string) []types.AchievementStatus {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		p = model.UserProgress{UserID: userID}
	}

	firstUnlock := make(map[string]time.Time)
	for _, u := range s.store.UnlockRecords(ctx, userID) {
		if _, ok := firstUnlock[u.AchievementID]; !ok {
			firstUnlock[u.AchievementID] = u.UnlockedAt
		}
	}

	registry := s.unlocker.Registry()
	out := make([]types.AchievementStatus, 0, len(registry))
	for _, a := range registry {
		current, target := s.unlocker.Progress(a, p)
		status := types.AchievementStatus{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Repeatable:  a.Repeatable,
			Progress:    current,
			Target:      target,
		}
		if at, ok := firstUnlock[a.ID]; ok {
			status.Unlocked = true
			t := at
			status.UnlockedAt = &t
		}
		out = append(out, status)
	}
	return out
}

// History returns the user's most recent XP events, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) []model.XpEvent {
	return s.store.History(ctx, userID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"shardCount":  s.shardCount,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalUsers := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalUsers"] = totalUsers
		stats["rankedAllTime"] = s.board.Count(ctx, types.WindowAllTime)

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalUsers(totalUsers)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// validate rejects malformed award requests before any state is touched.
func validate(req AwardRequest) error {
	switch {
	case req.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	case req.IdempotencyKey == "":
		return fmt.Errorf("%w: idempotency key is required", ErrInvalidRequest)
	case !model.KnownAction(req.Action):
		return fmt.Errorf("%w: %q", scoring.ErrUnknownAction, req.Action)
	default:
		return nil
	}
}

// sleep waits for d or until ctx is done; reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
