package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if LADLE_CONFIG is set
//  3. env (prefix LADLE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("LADLE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: LADLE_ADDR, LADLE_QUEUE_SIZE, ...
	// Map env keys like LADLE_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("LADLE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "ladle_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects values the service cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.NoticeQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ShardCount < 1:
		return fmt.Errorf("%w: shard_count must be positive", ErrInvalidConfig)
	case c.LevelBase < 1:
		return fmt.Errorf("%w: level_base must be positive", ErrInvalidConfig)
	case c.LevelGrowth <= 1:
		return fmt.Errorf("%w: level_growth must exceed 1", ErrInvalidConfig)
	case c.SessionDecay <= 0 || c.SessionDecay > 1:
		return fmt.Errorf("%w: session_decay must be in (0, 1]", ErrInvalidConfig)
	case c.DecayFloor < 0 || c.DecayFloor > 1:
		return fmt.Errorf("%w: decay_floor must be in [0, 1]", ErrInvalidConfig)
	case c.StreakGraceDays < 0:
		return fmt.Errorf("%w: streak_grace_days must not be negative", ErrInvalidConfig)
	case c.PityThreshold < 1:
		return fmt.Errorf("%w: pity_threshold must be positive", ErrInvalidConfig)
	case c.RetryAttempts < 1:
		return fmt.Errorf("%w: retry_attempts must be positive", ErrInvalidConfig)
	}
	for action, amount := range c.ActionXP {
		if amount < 0 {
			return fmt.Errorf("%w: action_xp[%s] must not be negative", ErrInvalidConfig, action)
		}
	}
	return nil
}
