package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/ladle/internal/app"
	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func startedService(t *testing.T, opts ...service.Option) (*service.Service, context.Context, func()) {
	t.Helper()

	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.Start(ctx); err != nil {
		cancel()
		t.Fatalf("start service: %v", err)
	}
	return svc, ctx, func() {
		svc.Stop()
		cancel()
	}
}

func TestService_AwardPipeline(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx, stop := startedService(t, service.WithWorkerCount(2))
		defer stop()

		day1 := time.Date(2026, 3, 2, 19, 30, 0, 0, time.UTC)

		Convey("When awarding a first daily login", func() {
			res, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "mina",
				Action:         model.ActionDailyLogin,
				IdempotencyKey: "login-day1",
				OccurredAt:     day1,
			})

			Convey("Then the full delta comes back in one response", func() {
				So(err, ShouldBeNil)
				So(res.XPGained, ShouldEqual, 15)
				So(res.NewTotalXP, ShouldEqual, 15)
				So(res.Level, ShouldEqual, 1)
				So(res.LeveledUp, ShouldBeFalse)
				So(res.Streak.Days, ShouldEqual, 1)
				So(res.Duplicate, ShouldBeFalse)
				So(res.CreatorTier, ShouldEqual, "home_cook")
			})

			Convey("And the progress read reflects the commit", func() {
				p, perr := svc.Progress(ctx, "mina")
				So(perr, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, 15)
				So(p.Level, ShouldEqual, 1)
				So(p.CurrentStreakDays, ShouldEqual, 1)
			})
		})

		Convey("When replaying the same idempotency key", func() {
			first, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "mina",
				Action:         model.ActionDailyLogin,
				IdempotencyKey: "login-replayed",
				OccurredAt:     day1,
			})
			So(err, ShouldBeNil)

			second, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "mina",
				Action:         model.ActionDailyLogin,
				IdempotencyKey: "login-replayed",
				OccurredAt:     day1.Add(time.Hour),
			})

			Convey("Then the cached result returns with no second mutation", func() {
				So(err, ShouldBeNil)
				So(second.Duplicate, ShouldBeTrue)
				So(second.NewTotalXP, ShouldEqual, first.NewTotalXP)
				So(second.XPGained, ShouldEqual, first.XPGained)

				p, perr := svc.Progress(ctx, "mina")
				So(perr, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, first.NewTotalXP)
			})
		})
	})
}

func TestService_LevelUpGrantsReward(t *testing.T) {
	Convey("Given a user sitting just under the level 2 threshold", t, func() {
		svc, ctx, stop := startedService(t,
			service.WithWorkerCount(1),
			service.WithActionXP(map[string]int64{
				"daily_login": 95,
				"rate_recipe": 10,
			}),
		)
		defer stop()

		at := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
		res, err := svc.AwardXP(ctx, service.AwardRequest{
			UserID:         "theo",
			Action:         model.ActionDailyLogin,
			IdempotencyKey: "seed",
			OccurredAt:     at,
		})
		So(err, ShouldBeNil)
		So(res.NewTotalXP, ShouldEqual, 95)
		So(res.Level, ShouldEqual, 1)

		Convey("When a 10 XP award crosses the threshold", func() {
			res, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "theo",
				Action:         model.ActionRateRecipe,
				IdempotencyKey: "crossing",
				OccurredAt:     at.Add(time.Minute),
			})

			Convey("Then the user levels up and a mystery box is drawn", func() {
				So(err, ShouldBeNil)
				So(res.NewTotalXP, ShouldEqual, 105)
				So(res.Level, ShouldEqual, 2)
				So(res.LeveledUp, ShouldBeTrue)
				So(len(res.RewardsGranted), ShouldEqual, 1)
				So(res.RewardsGranted[0].GrantID, ShouldNotBeEmpty)
			})
		})
	})
}

func TestService_AchievementBonusXP(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx, stop := startedService(t, service.WithWorkerCount(1))
		defer stop()

		at := time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC)

		Convey("When the first ingredient scan lands", func() {
			res, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "pavel",
				Action:         model.ActionScanIngredient,
				IdempotencyKey: "scan-1",
				SessionID:      "sess-a",
				OccurredAt:     at,
			})

			Convey("Then the unlock and its bonus XP land in the same award", func() {
				So(err, ShouldBeNil)
				So(res.AchievementsUnlocked, ShouldContain, "first_scan")
				// 10 XP for the scan plus the 25 XP achievement reward.
				So(res.XPGained, ShouldEqual, 35)
				So(res.NewTotalXP, ShouldEqual, 35)
				So(len(res.RewardsGranted), ShouldEqual, 1)
			})

			Convey("And the achievement read API reports it unlocked", func() {
				statuses := svc.Achievements(ctx, "pavel")
				var found bool
				for _, st := range statuses {
					if st.ID == "first_scan" {
						found = true
						So(st.Unlocked, ShouldBeTrue)
						So(st.UnlockedAt, ShouldNotBeNil)
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("And the audit history carries the derived bonus event", func() {
				events := svc.History(ctx, "pavel", 10)
				var bonus int
				for _, e := range events {
					if e.Action == model.ActionAchievementBonus {
						bonus++
						So(e.IdempotencyKey, ShouldEqual, "scan-1:achv:first_scan")
						So(e.Amount, ShouldEqual, 25)
					}
				}
				So(bonus, ShouldEqual, 1)
			})
		})

		Convey("When scans repeat within the same session", func() {
			for i, want := range []int64{35, 5, 3} {
				res, err := svc.AwardXP(ctx, service.AwardRequest{
					UserID:         "quinn",
					Action:         model.ActionScanIngredient,
					IdempotencyKey: fmt.Sprintf("scan-%d", i),
					SessionID:      "sess-b",
					OccurredAt:     at,
				})
				So(err, ShouldBeNil)
				// The first scan includes the 25 XP first_scan bonus;
				// later scans shrink under session decay.
				So(res.XPGained, ShouldEqual, want)
			}
		})
	})
}

func TestService_StreakTransitions(t *testing.T) {
	Convey("Given a user cooking on consecutive days", t, func() {
		svc, ctx, stop := startedService(t, service.WithWorkerCount(1))
		defer stop()

		day := func(d int) time.Time {
			return time.Date(2026, 5, d, 18, 0, 0, 0, time.UTC)
		}
		award := func(key string, at time.Time) model.ProgressionResult {
			res, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "rosa",
				Action:         model.ActionCompleteRecipe,
				IdempotencyKey: key,
				OccurredAt:     at,
			})
			So(err, ShouldBeNil)
			return res
		}

		Convey("When awards land on day 1, day 2 and then day 5", func() {
			r1 := award("cook-1", day(1))
			r2 := award("cook-2", day(2))
			r3 := award("cook-3", day(5))

			Convey("Then the streak extends and later resets, keeping longest", func() {
				So(r1.Streak.Days, ShouldEqual, 1)
				So(r2.Streak.Days, ShouldEqual, 2)
				So(r2.Streak.Extended, ShouldBeTrue)
				So(r3.Streak.Days, ShouldEqual, 1)
				So(r3.Streak.Reset, ShouldBeTrue)
				So(r3.Streak.Longest, ShouldEqual, 2)
			})
		})

		Convey("When two awards land on the same calendar day", func() {
			r1 := award("same-1", day(10))
			r2 := award("same-2", day(10).Add(3*time.Hour))

			Convey("Then the streak does not double-count the day", func() {
				So(r1.Streak.Days, ShouldEqual, 1)
				So(r2.Streak.Days, ShouldEqual, 1)
				So(r2.Streak.Extended, ShouldBeFalse)
			})
		})
	})

	Convey("Given a user in a non-UTC timezone", t, func() {
		svc, ctx, stop := startedService(t, service.WithWorkerCount(1))
		defer stop()

		// 23:30 Tokyo on the 1st and 00:30 Tokyo on the 2nd are one
		// calendar day apart locally despite being an hour apart.
		first := time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC)
		second := time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC)

		award := func(key string, at time.Time) model.ProgressionResult {
			res, err := svc.AwardXP(ctx, service.AwardRequest{
				UserID:         "aiko",
				Action:         model.ActionDailyLogin,
				IdempotencyKey: key,
				Timezone:       "Asia/Tokyo",
				OccurredAt:     at,
			})
			So(err, ShouldBeNil)
			return res
		}

		Convey("When logins straddle the local midnight", func() {
			r1 := award("tokyo-1", first)
			r2 := award("tokyo-2", second)

			Convey("Then the streak extends across the local day boundary", func() {
				So(r1.Streak.Days, ShouldEqual, 1)
				So(r2.Streak.Days, ShouldEqual, 2)
				So(r2.Streak.Extended, ShouldBeTrue)
			})
		})
	})
}

func TestService_ConcurrentAwards(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx, stop := startedService(t, service.WithWorkerCount(4))
		defer stop()

		at := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

		Convey("When many goroutines award the same user with distinct keys", func() {
			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.AwardXP(ctx, service.AwardRequest{
						UserID:         "crowd",
						Action:         model.ActionDailyLogin,
						IdempotencyKey: fmt.Sprintf("burst-%d", i),
						OccurredAt:     at,
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every award lands exactly once", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				p, perr := svc.Progress(ctx, "crowd")
				So(perr, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, int64(n*15))
			})
		})

		Convey("When many goroutines race on one idempotency key", func() {
			const n = 20
			var wg sync.WaitGroup
			results := make(chan model.ProgressionResult, n)
			errs := make(chan error, n)

			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := svc.AwardXP(ctx, service.AwardRequest{
						UserID:         "racer",
						Action:         model.ActionDailyLogin,
						IdempotencyKey: "one-key",
						OccurredAt:     at,
					})
					if err != nil {
						errs <- err
						return
					}
					results <- res
				}()
			}
			wg.Wait()
			close(results)
			close(errs)

			Convey("Then the delta applies once and all callers agree", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				duplicates := 0
				for res := range results {
					So(res.NewTotalXP, ShouldEqual, 15)
					if res.Duplicate {
						duplicates++
					}
				}
				So(duplicates, ShouldEqual, n-1)

				p, perr := svc.Progress(ctx, "racer")
				So(perr, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, 15)
			})
		})
	})
}

func TestService_LeaderboardFlow(t *testing.T) {
	Convey("Given awards for several users", t, func() {
		svc, ctx, stop := startedService(t,
			service.WithWorkerCount(2),
			service.WithRebuildInterval(50*time.Millisecond),
		)
		defer stop()

		at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
		totals := map[string]int{"ana": 4, "bora": 2, "ceren": 1}
		for user, logins := range totals {
			for i := 0; i < logins; i++ {
				_, err := svc.AwardXP(ctx, service.AwardRequest{
					UserID:         user,
					Action:         model.ActionCompleteRecipe,
					IdempotencyKey: fmt.Sprintf("%s-%d", user, i),
					OccurredAt:     at,
				})
				So(err, ShouldBeNil)
			}
		}

		// Let the ranker workers drain the notice queue.
		time.Sleep(300 * time.Millisecond)

		Convey("When reading the all-time leaderboard", func() {
			entries, err := svc.Leaderboard(ctx, types.WindowAllTime, 1, 10)

			Convey("Then users rank by XP descending", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 3)
				So(entries[0].UserID, ShouldEqual, "ana")
				So(entries[1].UserID, ShouldEqual, "bora")
				So(entries[2].UserID, ShouldEqual, "ceren")
				So(entries[0].Rank, ShouldEqual, 1)
				So(entries[0].XP, ShouldBeGreaterThan, entries[1].XP)
			})
		})

		Convey("When asking for a single user's rank", func() {
			entry, err := svc.RankOf(ctx, types.WindowAllTime, "bora")

			Convey("Then the rank matches the page view", func() {
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.UserID, ShouldEqual, "bora")
			})
		})
	})
}
