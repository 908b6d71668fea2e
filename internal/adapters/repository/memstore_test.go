package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/ladle/internal/adapters/repository"
	"github.com/okian/ladle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newCommit(userID, key string, version uint64, total int64) repository.Commit {
	return repository.Commit{
		UserID:  userID,
		Version: version,
		Progress: model.UserProgress{
			UserID:       userID,
			TotalXP:      total,
			Level:        1,
			ActionCounts: map[model.ActionType]int64{},
		},
		Event: model.XpEvent{
			IdempotencyKey: key,
			UserID:         userID,
			Action:         model.ActionScanIngredient,
			Amount:         10,
			SessionID:      "s1",
			OccurredAt:     time.Now(),
		},
		Result: model.ProgressionResult{NewTotalXP: total},
	}
}

func TestMemStoreApply(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore(ctx)

		Convey("Then unknown users snapshot at version 0", func() {
			p, v := s.Snapshot(ctx, "u1")
			So(v, ShouldEqual, 0)
			So(p.TotalXP, ShouldEqual, 0)
			So(p.ActionCounts, ShouldNotBeNil)

			_, err := s.Get(ctx, "u1")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When applying a first commit", func() {
			err := s.Apply(ctx, newCommit("u1", "k1", 0, 10))

			Convey("Then the snapshot should advance", func() {
				So(err, ShouldBeNil)
				p, v := s.Snapshot(ctx, "u1")
				So(v, ShouldEqual, 1)
				So(p.TotalXP, ShouldEqual, 10)
				So(s.Count(ctx), ShouldEqual, 1)
			})

			Convey("And the result should be cached under the key", func() {
				So(err, ShouldBeNil)
				res, ok := s.CachedResult(ctx, "u1", "k1")
				So(ok, ShouldBeTrue)
				So(res.NewTotalXP, ShouldEqual, 10)
			})

			Convey("And session counts should track the action", func() {
				So(err, ShouldBeNil)
				So(s.SessionCount(ctx, "u1", "s1", model.ActionScanIngredient), ShouldEqual, 1)
				So(s.SessionCount(ctx, "u1", "s2", model.ActionScanIngredient), ShouldEqual, 0)
			})
		})

		Convey("When committing with a stale version", func() {
			So(s.Apply(ctx, newCommit("u1", "k1", 0, 10)), ShouldBeNil)
			err := s.Apply(ctx, newCommit("u1", "k2", 0, 20))

			Convey("Then it should fail with ErrVersionConflict", func() {
				So(err, ShouldEqual, repository.ErrVersionConflict)
			})
		})

		Convey("When committing a duplicate idempotency key", func() {
			So(s.Apply(ctx, newCommit("u1", "k1", 0, 10)), ShouldBeNil)
			err := s.Apply(ctx, newCommit("u1", "k1", 1, 20))

			Convey("Then it should fail with ErrDuplicateKey and keep state", func() {
				So(err, ShouldEqual, repository.ErrDuplicateKey)
				p, _ := s.Snapshot(ctx, "u1")
				So(p.TotalXP, ShouldEqual, 10)
			})
		})

		Convey("When a new user commits against a non-zero version", func() {
			err := s.Apply(ctx, newCommit("u2", "k1", 3, 10))

			Convey("Then it should fail with ErrVersionConflict", func() {
				So(err, ShouldEqual, repository.ErrVersionConflict)
			})
		})
	})
}

func TestMemStoreHistory(t *testing.T) {
	Convey("Given a store with a small history limit", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore(ctx, repository.WithHistoryLimit(3))

		version := uint64(0)
		for i := 0; i < 5; i++ {
			c := newCommit("u1", fmt.Sprintf("k%d", i), version, int64((i+1)*10))
			So(s.Apply(ctx, c), ShouldBeNil)
			version++
		}

		Convey("Then history should keep only the newest events, newest first", func() {
			events := s.History(ctx, "u1", 10)
			So(events, ShouldHaveLength, 3)
			So(events[0].IdempotencyKey, ShouldEqual, "k4")
			So(events[2].IdempotencyKey, ShouldEqual, "k2")
		})

		Convey("And a smaller limit should truncate", func() {
			events := s.History(ctx, "u1", 1)
			So(events, ShouldHaveLength, 1)
			So(events[0].IdempotencyKey, ShouldEqual, "k4")
		})
	})
}

func TestMemStoreUnlocksAndGrants(t *testing.T) {
	Convey("Given a commit carrying unlocks and grants", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore(ctx)

		c := newCommit("u1", "k1", 0, 10)
		c.Unlocks = []model.UserAchievement{
			{AchievementID: "first_scan", UnlockedAt: time.Now()},
		}
		c.Grants = []model.RewardGrant{
			{GrantID: "g1", RewardID: "golden_whisk", Tier: "epic"},
		}
		So(s.Apply(ctx, c), ShouldBeNil)

		Convey("Then unlock counts and records should reflect the commit", func() {
			So(s.UnlockCounts(ctx, "u1")["first_scan"], ShouldEqual, 1)
			records := s.UnlockRecords(ctx, "u1")
			So(records, ShouldHaveLength, 1)
			So(records[0].AchievementID, ShouldEqual, "first_scan")
		})

		Convey("Then grants should be retained", func() {
			grants := s.Grants(ctx, "u1")
			So(grants, ShouldHaveLength, 1)
			So(grants[0].RewardID, ShouldEqual, "golden_whisk")
		})
	})
}

func TestMemStoreConcurrency(t *testing.T) {
	Convey("Given concurrent CAS loops for the same user", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore(ctx, repository.WithShardCount(4))

		const n = 50
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("k%d", i)
				for {
					p, v := s.Snapshot(ctx, "u1")
					p.TotalXP += 10
					c := repository.Commit{
						UserID:   "u1",
						Version:  v,
						Progress: p,
						Event: model.XpEvent{
							IdempotencyKey: key,
							UserID:         "u1",
							Action:         model.ActionScanIngredient,
							Amount:         10,
						},
						Result: model.ProgressionResult{NewTotalXP: p.TotalXP},
					}
					err := s.Apply(ctx, c)
					if err == nil || err == repository.ErrDuplicateKey {
						return
					}
				}
			}(i)
		}
		wg.Wait()

		Convey("Then no update should be lost", func() {
			p, v := s.Snapshot(ctx, "u1")
			So(p.TotalXP, ShouldEqual, int64(n*10))
			So(v, ShouldEqual, uint64(n))
		})
	})
}
