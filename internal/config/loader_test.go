package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/okian/ladle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.NoticeQueueSize, convey.ShouldEqual, 100_000)
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
				convey.So(cfg.LevelBase, convey.ShouldEqual, 100)
				convey.So(cfg.LevelGrowth, convey.ShouldEqual, 1.5)
				convey.So(cfg.SessionDecay, convey.ShouldEqual, 0.5)
				convey.So(cfg.PityThreshold, convey.ShouldEqual, 5)
				convey.So(cfg.ActionXP["complete_recipe"], convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LADLE_ADDR", ":8080")
			_ = os.Setenv("LADLE_QUEUE_SIZE", "50000")
			_ = os.Setenv("LADLE_WORKER_COUNT", "16")
			_ = os.Setenv("LADLE_STREAK_GRACE_DAYS", "1")
			_ = os.Setenv("LADLE_PITY_THRESHOLD", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.NoticeQueueSize, convey.ShouldEqual, 50000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.StreakGraceDays, convey.ShouldEqual, 1)
				convey.So(cfg.PityThreshold, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 30000
worker_count: 24
rebuild_interval: 5s
level_base: 200
level_growth: 2.0
action_xp:
  scan_ingredient: 20
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LADLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.NoticeQueueSize, convey.ShouldEqual, 30000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.RebuildInterval, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.LevelBase, convey.ShouldEqual, 200)
				convey.So(cfg.LevelGrowth, convey.ShouldEqual, 2.0)
				convey.So(cfg.ActionXP["scan_ingredient"], convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 30000
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LADLE_CONFIG", tmpFile)
			_ = os.Setenv("LADLE_ADDR", ":8080")      // This should override the file
			_ = os.Setenv("LADLE_WORKER_COUNT", "32") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")          // Overridden by env
				convey.So(cfg.NoticeQueueSize, convey.ShouldEqual, 30000) // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)        // Overridden by env
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("LADLE_CONFIG", "/nonexistent/ladle.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			_ = os.Setenv("LADLE_LEVEL_GROWTH", "0.9")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with an invalid config error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	vars := []string{
		"LADLE_CONFIG",
		"LADLE_ADDR",
		"LADLE_LOG_LEVEL",
		"LADLE_QUEUE_SIZE",
		"LADLE_WORKER_COUNT",
		"LADLE_SHARD_COUNT",
		"LADLE_HISTORY_LIMIT",
		"LADLE_MAX_LEADERBOARD_PER_PAGE",
		"LADLE_REBUILD_INTERVAL",
		"LADLE_STREAK_GRACE_DAYS",
		"LADLE_SESSION_DECAY",
		"LADLE_DECAY_FLOOR",
		"LADLE_LEVEL_BASE",
		"LADLE_LEVEL_GROWTH",
		"LADLE_MAX_LEVEL",
		"LADLE_PITY_THRESHOLD",
		"LADLE_RETRY_ATTEMPTS",
		"LADLE_RETRY_BACKOFF",
	}
	for _, v := range vars {
		_ = os.Unsetenv(v)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "ladle-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
