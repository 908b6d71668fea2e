// Package leveling maps cumulative XP to discrete levels.
//
// The threshold sequence is geometric: advancing from level n costs
// round(base * growth^(n-1)) XP, so the cumulative floor of level n is
// the sum of the costs of all prior levels. Level 1 starts at 0 XP.
// The mapping is deterministic and invertible (FloorXP) so callers can
// assert exact boundaries.
package leveling

import (
	"math"
)

// Default curve constants.
const (
	defaultBase     = 100
	defaultGrowth   = 1.5
	defaultMaxLevel = 100
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithCurve sets the base cost and growth factor.
// base must be positive; growth must be >= 1.
func WithCurve(base int64, growth float64) Option {
	return func(c *Calculator) {
		if base > 0 {
			c.base = base
		}
		if growth >= 1 {
			c.growth = growth
		}
	}
}

// WithMaxLevel caps the computed level.
func WithMaxLevel(maxLevel int) Option {
	return func(c *Calculator) {
		if maxLevel > 1 {
			c.maxLevel = maxLevel
		}
	}
}

// Result describes a user's position on the level curve.
type Result struct {
	Level   int
	Into    int64 // XP accumulated inside the current level
	ToNext  int64 // XP remaining to the next level; 0 at max level
	FloorXP int64 // cumulative XP floor of the current level
}

// Calculator is a pure, side-effect-free level calculator.
type Calculator struct {
	base     int64
	growth   float64
	maxLevel int

	// floors[i] is the cumulative XP floor of level i+1.
	// Precomputed once; the curve is immutable after construction.
	floors []int64
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		base:     defaultBase,
		growth:   defaultGrowth,
		maxLevel: defaultMaxLevel,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.floors = make([]int64, c.maxLevel)
	c.floors[0] = 0
	for lvl := 2; lvl <= c.maxLevel; lvl++ {
		cost := c.levelCost(lvl - 1)
		prev := c.floors[lvl-2]
		if cost <= 0 || prev > math.MaxInt64-cost {
			// Curve overflowed; clamp the effective max level here.
			c.floors = c.floors[:lvl-1]
			c.maxLevel = lvl - 1
			break
		}
		c.floors[lvl-1] = prev + cost
	}

	return c
}

// levelCost returns the XP cost of advancing from level n to n+1.
func (c *Calculator) levelCost(n int) int64 {
	cost := float64(c.base) * math.Pow(c.growth, float64(n-1))
	if cost > math.MaxInt64/2 {
		return 0
	}
	return int64(math.Round(cost))
}

// Level returns the level position for a cumulative XP total.
// Negative totals are treated as 0.
func (c *Calculator) Level(totalXP int64) Result {
	if totalXP < 0 {
		totalXP = 0
	}

	// Binary search over precomputed floors: greatest floor <= totalXP.
	lo, hi := 0, len(c.floors)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.floors[mid] <= totalXP {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	level := lo + 1
	res := Result{
		Level:   level,
		FloorXP: c.floors[lo],
		Into:    totalXP - c.floors[lo],
	}
	if level < c.maxLevel {
		res.ToNext = c.floors[lo+1] - totalXP
	}
	return res
}

// FloorXP returns the cumulative XP floor of a level. Levels below 1
// report 0; levels above the cap report the cap's floor.
func (c *Calculator) FloorXP(level int) int64 {
	if level < 1 {
		return 0
	}
	if level > c.maxLevel {
		level = c.maxLevel
	}
	return c.floors[level-1]
}

// MaxLevel returns the effective level cap.
func (c *Calculator) MaxLevel() int {
	return c.maxLevel
}
