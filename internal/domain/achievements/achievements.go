// Package achievements evaluates declarative unlock criteria against a
// progress snapshot. Criteria are data, not code: each achievement
// carries a tagged Criterion interpreted by the evaluator, so new
// achievements are added to the registry without new logic paths.
package achievements

import (
	"github.com/okian/ladle/internal/domain/model"
)

// Kind tags the variant of an unlock criterion.
type Kind string

// Supported criterion kinds.
const (
	KindTotalXP      Kind = "total_xp"
	KindStreakDays   Kind = "streak_days"
	KindActionCount  Kind = "action_count"
	KindLevelReached Kind = "level_reached"
)

// Criterion is a side-effect-free predicate over a progress snapshot.
type Criterion struct {
	Kind      Kind
	Action    model.ActionType // only for KindActionCount
	Threshold int64
}

// Achievement describes a single unlockable goal.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Criterion   Criterion
	XPReward    int64
	Repeatable  bool
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithRegistry replaces the default registry.
func WithRegistry(registry []Achievement) Option {
	return func(e *Evaluator) {
		if len(registry) > 0 {
			e.registry = registry
		}
	}
}

// WithExtra appends achievements to the registry.
func WithExtra(extra ...Achievement) Option {
	return func(e *Evaluator) {
		e.registry = append(e.registry, extra...)
	}
}

// Evaluator interprets criteria against progress snapshots.
type Evaluator struct {
	registry []Achievement
}

// NewEvaluator creates an evaluator pre-loaded with the default
// cooking achievement set.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{registry: defaultRegistry()}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Registry returns a copy of all registered achievements.
func (e *Evaluator) Registry() []Achievement {
	out := make([]Achievement, len(e.registry))
	copy(out, e.registry)
	return out
}

// Lookup returns the achievement with the given id.
func (e *Evaluator) Lookup(id string) (Achievement, bool) {
	for _, a := range e.registry {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Evaluate checks every achievement against the snapshot and returns the
// ones that newly unlock. unlockCounts maps achievement id to the number
// of times the user has already unlocked it; non-repeatable achievements
// with a count > 0 are skipped, repeatable ones unlock again at each
// further multiple of their threshold.
func (e *Evaluator) Evaluate(p model.UserProgress, unlockCounts map[string]int) []Achievement {
	var unlocked []Achievement
	for _, a := range e.registry {
		prior := unlockCounts[a.ID]
		if prior > 0 && !a.Repeatable {
			continue
		}
		if satisfied(a, prior, p) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}

// Progress reports the current value and target for an achievement,
// used by the in-progress read API.
func (e *Evaluator) Progress(a Achievement, p model.UserProgress) (current, target int64) {
	return measure(a.Criterion, p), a.Criterion.Threshold
}

// satisfied interprets the criterion. For repeatable achievements the
// effective threshold grows by one multiple per prior unlock, which
// bounds the unlocks per evaluation and guarantees termination.
func satisfied(a Achievement, prior int, p model.UserProgress) bool {
	threshold := a.Criterion.Threshold
	if a.Repeatable && prior > 0 {
		threshold = a.Criterion.Threshold * int64(prior+1)
	}
	return measure(a.Criterion, p) >= threshold
}

// measure extracts the criterion's observed value from the snapshot.
func measure(c Criterion, p model.UserProgress) int64 {
	switch c.Kind {
	case KindTotalXP:
		return p.TotalXP
	case KindStreakDays:
		n := p.CurrentStreakDays
		if p.LongestStreakDays > n {
			n = p.LongestStreakDays
		}
		return int64(n)
	case KindActionCount:
		return p.ActionCounts[c.Action]
	case KindLevelReached:
		return int64(p.Level)
	default:
		return 0
	}
}

// defaultRegistry is the built-in cooking achievement set.
func defaultRegistry() []Achievement {
	return []Achievement{

		// Scanning
		{
			ID: "first_scan", Name: "First Scan",
			Description: "Scan your first ingredient",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionScanIngredient, Threshold: 1},
			XPReward:    25,
		},
		{
			ID: "pantry_explorer", Name: "Pantry Explorer",
			Description: "Scan 50 ingredients",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionScanIngredient, Threshold: 50},
			XPReward:    100,
		},
		{
			ID: "scanner_supreme", Name: "Scanner Supreme",
			Description: "Scan 500 ingredients",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionScanIngredient, Threshold: 500},
			XPReward:    250,
		},
		{
			ID: "dozen_scans", Name: "Dozen Scans",
			Description: "Scan 12 ingredients, again and again",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionScanIngredient, Threshold: 12},
			XPReward:    20,
			Repeatable:  true,
		},

		// Cooking
		{
			ID: "first_recipe", Name: "First Plate",
			Description: "Complete your first recipe",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionCompleteRecipe, Threshold: 1},
			XPReward:    50,
		},
		{
			ID: "weeknight_regular", Name: "Weeknight Regular",
			Description: "Complete 25 recipes",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionCompleteRecipe, Threshold: 25},
			XPReward:    150,
		},
		{
			ID: "kitchen_marathon", Name: "Kitchen Marathon",
			Description: "Complete 100 recipes",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionCompleteRecipe, Threshold: 100},
			XPReward:    300,
		},

		// Streaks
		{
			ID: "week_streak", Name: "Seven Straight",
			Description: "Cook 7 days in a row",
			Criterion:   Criterion{Kind: KindStreakDays, Threshold: 7},
			XPReward:    100,
		},
		{
			ID: "fortnight_flame", Name: "Fortnight Flame",
			Description: "Cook 14 days in a row",
			Criterion:   Criterion{Kind: KindStreakDays, Threshold: 14},
			XPReward:    150,
		},
		{
			ID: "unbroken_month", Name: "Unbroken Month",
			Description: "Cook 30 days in a row",
			Criterion:   Criterion{Kind: KindStreakDays, Threshold: 30},
			XPReward:    500,
		},

		// Levels and XP
		{
			ID: "level_5", Name: "Line Cook",
			Description: "Reach level 5",
			Criterion:   Criterion{Kind: KindLevelReached, Threshold: 5},
			XPReward:    100,
		},
		{
			ID: "level_10", Name: "Station Chef",
			Description: "Reach level 10",
			Criterion:   Criterion{Kind: KindLevelReached, Threshold: 10},
			XPReward:    200,
		},
		{
			ID: "level_25", Name: "Executive Chef",
			Description: "Reach level 25",
			Criterion:   Criterion{Kind: KindLevelReached, Threshold: 25},
			XPReward:    500,
		},
		{
			ID: "xp_10k", Name: "Ten Thousand Tastes",
			Description: "Accumulate 10,000 XP",
			Criterion:   Criterion{Kind: KindTotalXP, Threshold: 10_000},
			XPReward:    250,
		},

		// Creating
		{
			ID: "publisher", Name: "Recipe Publisher",
			Description: "Publish your first recipe",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionPublishRecipe, Threshold: 1},
			XPReward:    75,
		},
		{
			ID: "cookbook_author", Name: "Cookbook Author",
			Description: "Publish 10 recipes",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionPublishRecipe, Threshold: 10},
			XPReward:    300,
		},
		{
			ID: "critic", Name: "Seasoned Critic",
			Description: "Rate 20 recipes",
			Criterion:   Criterion{Kind: KindActionCount, Action: model.ActionRateRecipe, Threshold: 20},
			XPReward:    75,
		},
	}
}
