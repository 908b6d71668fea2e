package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/ladle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	convey.Convey("Given default configuration", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should carry sane defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			convey.So(cfg.HistoryLimit, convey.ShouldEqual, 100)
			convey.So(cfg.MaxLeaderboardPerPage, convey.ShouldEqual, 100)
			convey.So(cfg.DecayFloor, convey.ShouldEqual, 0.25)
			convey.So(cfg.MaxLevel, convey.ShouldEqual, 100)
		})

		convey.Convey("Then every known action should have a base amount", func() {
			for _, action := range []string{
				"scan_ingredient",
				"complete_recipe",
				"daily_login",
				"publish_recipe",
				"rate_recipe",
			} {
				convey.So(cfg.ActionXP[action], convey.ShouldBeGreaterThan, 0)
			}
		})
	})
}
