// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// NoticeQueueSize bounds the in-memory rank notice queue.
	NoticeQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ranker workers.
	WorkerCount int `koanf:"worker_count"`

	// ShardCount configures the number of shards in the progress store.
	ShardCount int `koanf:"shard_count"`

	// HistoryLimit bounds the per-user award history kept in the store.
	HistoryLimit int `koanf:"history_limit"`

	// MaxLeaderboardPerPage caps GET /leaderboard?per_page.
	MaxLeaderboardPerPage int `koanf:"max_leaderboard_per_page"`

	// RebuildInterval controls how often leaderboard snapshots are refreshed.
	RebuildInterval time.Duration `koanf:"rebuild_interval"`

	// StreakGraceDays extends the streak window past the next calendar day.
	StreakGraceDays int `koanf:"streak_grace_days"`

	// SessionDecay and DecayFloor shape repeat-action XP within a session.
	SessionDecay float64 `koanf:"session_decay"`
	DecayFloor   float64 `koanf:"decay_floor"`

	// LevelBase, LevelGrowth and MaxLevel shape the leveling curve.
	LevelBase   int64   `koanf:"level_base"`
	LevelGrowth float64 `koanf:"level_growth"`
	MaxLevel    int     `koanf:"max_level"`

	// PityThreshold guarantees a high-tier reward after this many misses.
	PityThreshold int `koanf:"pity_threshold"`

	// ActionXP overrides the base XP amount per action.
	ActionXP map[string]int64 `koanf:"action_xp"`

	// RetryAttempts and RetryBackoff bound the optimistic commit loop.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryBackoff  time.Duration `koanf:"retry_backoff"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		NoticeQueueSize:       100_000,
		WorkerCount:           runtime.NumCPU() * 4,
		ShardCount:            8,
		HistoryLimit:          100,
		MaxLeaderboardPerPage: 100,
		RebuildInterval:       2 * time.Second,
		StreakGraceDays:       0,
		SessionDecay:          0.5,
		DecayFloor:            0.25,
		LevelBase:             100,
		LevelGrowth:           1.5,
		MaxLevel:              100,
		PityThreshold:         5,
		ActionXP: map[string]int64{
			"scan_ingredient": 10,
			"complete_recipe": 50,
			"daily_login":     15,
			"publish_recipe":  75,
			"rate_recipe":     5,
		},
		RetryAttempts: 8,
		RetryBackoff:  2 * time.Millisecond,
	}
	return c
}
