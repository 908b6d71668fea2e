// Package rewards draws mystery-box contents and computes creator tier
// transitions on level-ups and milestone unlocks.
package rewards

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladle/internal/domain/model"
)

// Reward tier names. Rare and epic count as high-tier for the pity rule.
const (
	TierCommon = "common"
	TierRare   = "rare"
	TierEpic   = "epic"
)

// Default pity threshold: a high-tier item is guaranteed after this many
// consecutive low-tier draws.
const defaultPityThreshold = 5

// Item is one row of the mystery-box reward table.
type Item struct {
	ID     string
	Name   string
	Tier   string
	Weight int
}

// defaultTable is the built-in cooking-themed reward table.
func defaultTable() []Item {
	return []Item{
		{ID: "pinch_of_xp", Name: "Pinch of XP", Tier: TierCommon, Weight: 40},
		{ID: "basil_sticker", Name: "Basil Sticker", Tier: TierCommon, Weight: 30},
		{ID: "apron_pattern", Name: "Apron Pattern", Tier: TierCommon, Weight: 15},
		{ID: "rare_recipe_card", Name: "Rare Recipe Card", Tier: TierRare, Weight: 10},
		{ID: "golden_whisk", Name: "Golden Whisk", Tier: TierEpic, Weight: 5},
	}
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithTable replaces the reward table. Items with non-positive weight
// are dropped.
func WithTable(table []Item) Option {
	return func(g *Generator) {
		filtered := make([]Item, 0, len(table))
		for _, it := range table {
			if it.Weight > 0 {
				filtered = append(filtered, it)
			}
		}
		if len(filtered) > 0 {
			g.table = filtered
		}
	}
}

// WithPityThreshold sets the number of consecutive low-tier draws that
// guarantees a high-tier item.
func WithPityThreshold(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.pityThreshold = n
		}
	}
}

// WithSeed sets a deterministic random seed for reproducible draws.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // game rewards, not crypto
	}
}

// Generator performs weighted mystery-box draws with a pity counter.
type Generator struct {
	mu            sync.Mutex
	table         []Item
	pityThreshold int
	rng           *rand.Rand
}

// NewGenerator creates a generator with configuration options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		table:         defaultTable(),
		pityThreshold: defaultPityThreshold,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // game rewards, not crypto
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// PityThreshold returns the configured pity threshold.
func (g *Generator) PityThreshold() int {
	return g.pityThreshold
}

// Draw selects one item by weight. When pityCount has reached the
// threshold the draw is restricted to high-tier items. The returned
// pity counter is 0 after a high-tier draw, pityCount+1 otherwise.
func (g *Generator) Draw(pityCount int) (Item, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool := g.table
	if pityCount >= g.pityThreshold {
		pool = g.highTier()
	}

	item := g.weighted(pool)
	if highTier(item.Tier) {
		return item, 0
	}
	return item, pityCount + 1
}

// Grant materializes a drawn item as an immutable grant record.
func (g *Generator) Grant(item Item, at time.Time) model.RewardGrant {
	return model.RewardGrant{
		GrantID:   uuid.NewString(),
		RewardID:  item.ID,
		Tier:      item.Tier,
		Name:      item.Name,
		GrantedAt: at,
	}
}

// weighted picks an item from pool proportionally to weight.
// pool must be non-empty.
func (g *Generator) weighted(pool []Item) Item {
	total := 0
	for _, it := range pool {
		total += it.Weight
	}
	n := g.rng.Intn(total)
	for _, it := range pool {
		n -= it.Weight
		if n < 0 {
			return it
		}
	}
	return pool[len(pool)-1]
}

// highTier returns the high-tier subset of the table. Falls back to the
// full table if no high-tier items are configured.
func (g *Generator) highTier() []Item {
	out := make([]Item, 0, len(g.table))
	for _, it := range g.table {
		if highTier(it.Tier) {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return g.table
	}
	return out
}

func highTier(tier string) bool {
	return tier == TierRare || tier == TierEpic
}

// tierThreshold defines when a creator tier is reached. Both conditions
// must hold; thresholds only ever compare with >=, which keeps the tier
// monotonic for monotonic inputs.
type tierThreshold struct {
	tier      model.CreatorTier
	minXP     int64
	published int64
}

var tierThresholds = []tierThreshold{
	{tier: model.TierMasterChef, minXP: 10_000, published: 20},
	{tier: model.TierChef, minXP: 2_500, published: 5},
	{tier: model.TierSousChef, minXP: 500, published: 1},
}

// TierFor computes the creator tier for the given totals. Idempotent on
// unchanged state; callers keep the max of the stored and computed tier
// so a tier never regresses.
func TierFor(totalXP, publishedRecipes int64) model.CreatorTier {
	for _, t := range tierThresholds {
		if totalXP >= t.minXP && publishedRecipes >= t.published {
			return t.tier
		}
	}
	return model.TierHomeCook
}
