package rewards_test

import (
	"testing"
	"time"

	"github.com/okian/ladle/internal/domain/model"
	rewards "github.com/okian/ladle/internal/domain/rewards"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDraw(t *testing.T) {
	Convey("Given a generator with a deterministic seed", t, func() {
		g := rewards.NewGenerator(rewards.WithSeed(42))

		Convey("When drawing many times", func() {
			tiers := make(map[string]int)
			for i := 0; i < 1000; i++ {
				item, _ := g.Draw(0)
				tiers[item.Tier]++
			}

			Convey("Then every configured tier should appear", func() {
				So(tiers[rewards.TierCommon], ShouldBeGreaterThan, 0)
				So(tiers[rewards.TierRare], ShouldBeGreaterThan, 0)
				So(tiers[rewards.TierEpic], ShouldBeGreaterThan, 0)
			})

			Convey("And common items should dominate", func() {
				So(tiers[rewards.TierCommon], ShouldBeGreaterThan, tiers[rewards.TierRare])
				So(tiers[rewards.TierRare], ShouldBeGreaterThan, tiers[rewards.TierEpic])
			})
		})
	})
}

func TestPity(t *testing.T) {
	Convey("Given a generator with a pity threshold of 3", t, func() {
		g := rewards.NewGenerator(rewards.WithSeed(7), rewards.WithPityThreshold(3))

		Convey("When the pity counter has reached the threshold", func() {
			item, pity := g.Draw(3)

			Convey("Then the draw is guaranteed high-tier and the counter resets", func() {
				So(item.Tier, ShouldBeIn, rewards.TierRare, rewards.TierEpic)
				So(pity, ShouldEqual, 0)
			})
		})

		Convey("When a low-tier item is drawn below the threshold", func() {
			// Force a table with a single common item so the draw is low-tier.
			lowOnly := rewards.NewGenerator(
				rewards.WithSeed(7),
				rewards.WithPityThreshold(3),
				rewards.WithTable([]rewards.Item{
					{ID: "crumb", Name: "Crumb", Tier: rewards.TierCommon, Weight: 1},
				}),
			)
			_, pity := lowOnly.Draw(1)

			Convey("Then the pity counter increments", func() {
				So(pity, ShouldEqual, 2)
			})
		})

		Convey("When the pity rule fires repeatedly over a long run", func() {
			pity := 0
			consecutiveLow := 0
			maxConsecutiveLow := 0
			for i := 0; i < 500; i++ {
				var item rewards.Item
				item, pity = g.Draw(pity)
				if item.Tier == rewards.TierCommon {
					consecutiveLow++
					if consecutiveLow > maxConsecutiveLow {
						maxConsecutiveLow = consecutiveLow
					}
				} else {
					consecutiveLow = 0
				}
			}

			Convey("Then low-tier runs never exceed the threshold", func() {
				So(maxConsecutiveLow, ShouldBeLessThanOrEqualTo, 3)
			})
		})
	})
}

func TestGrant(t *testing.T) {
	Convey("Given a drawn item", t, func() {
		g := rewards.NewGenerator(rewards.WithSeed(1))
		item, _ := g.Draw(0)
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		Convey("When materializing a grant", func() {
			grant := g.Grant(item, at)

			Convey("Then the grant should carry a unique id and the draw data", func() {
				So(grant.GrantID, ShouldNotBeEmpty)
				So(grant.RewardID, ShouldEqual, item.ID)
				So(grant.Tier, ShouldEqual, item.Tier)
				So(grant.GrantedAt, ShouldEqual, at)

				other := g.Grant(item, at)
				So(other.GrantID, ShouldNotEqual, grant.GrantID)
			})
		})
	})
}

func TestTierFor(t *testing.T) {
	Convey("Given the creator tier thresholds", t, func() {
		Convey("Then tiers should follow XP and publication counts", func() {
			So(rewards.TierFor(0, 0), ShouldEqual, model.TierHomeCook)
			So(rewards.TierFor(499, 1), ShouldEqual, model.TierHomeCook)
			So(rewards.TierFor(500, 0), ShouldEqual, model.TierHomeCook)
			So(rewards.TierFor(500, 1), ShouldEqual, model.TierSousChef)
			So(rewards.TierFor(2_500, 5), ShouldEqual, model.TierChef)
			So(rewards.TierFor(10_000, 20), ShouldEqual, model.TierMasterChef)
		})

		Convey("Then the tier should be monotonic along a growth path", func() {
			prev := model.TierHomeCook
			for i := int64(0); i <= 30; i++ {
				tier := rewards.TierFor(i*500, i)
				So(tier, ShouldBeGreaterThanOrEqualTo, prev)
				prev = tier
			}
		})

		Convey("Then re-evaluating unchanged state should be idempotent", func() {
			a := rewards.TierFor(2_500, 5)
			b := rewards.TierFor(2_500, 5)
			So(a, ShouldEqual, b)
		})
	})
}
