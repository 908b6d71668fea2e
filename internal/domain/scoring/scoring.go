// Package scoring computes raw XP amounts for user actions, including
// diminishing returns for repeated actions within a client session.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/ladle/internal/domain/model"
)

// Default valuation constants.
const (
	defaultAmount     = 10
	defaultDecay      = 0.5
	defaultDecayFloor = 0.25
)

// defaultBaseAmounts is the base XP table applied before session decay.
func defaultBaseAmounts() map[model.ActionType]int64 {
	return map[model.ActionType]int64{
		model.ActionScanIngredient: 10,
		model.ActionCompleteRecipe: 50,
		model.ActionDailyLogin:     15,
		model.ActionPublishRecipe:  75,
		model.ActionRateRecipe:     5,
	}
}

// Option applies a configuration option to the TableValuer.
type Option func(*TableValuer)

// WithBaseAmounts replaces base XP amounts from a configuration map.
// Non-positive amounts are ignored.
func WithBaseAmounts(amounts map[string]int64) Option {
	return func(v *TableValuer) {
		for action, amount := range amounts {
			if amount > 0 {
				v.baseAmounts[model.ActionType(action)] = amount
			}
		}
	}
}

// WithSessionDecay sets the per-repeat multiplier and its floor for
// actions subject to diminishing returns. decay must be in (0, 1].
func WithSessionDecay(decay, floor float64) Option {
	return func(v *TableValuer) {
		if decay > 0 && decay <= 1 {
			v.decay = decay
		}
		if floor > 0 && floor <= 1 {
			v.decayFloor = floor
		}
	}
}

// Input abstracts the event fields needed for valuation.
type Input struct {
	Action model.ActionType
	// PriorInSession is how many times this action was already applied
	// within the same client session.
	PriorInSession int64
}

// Result contains the computed amounts for an action.
type Result struct {
	RawAmount int64 // base table amount
	Amount    int64 // applied amount after session decay
}

// Valuer computes the XP delta for an action.
type Valuer interface {
	// Value computes the XP amounts, honoring ctx for cancellation.
	Value(ctx context.Context, in Input) (Result, error)
}

// TableValuer implements Valuer with a base amount table and a geometric
// session decay for repeat-prone actions.
type TableValuer struct {
	baseAmounts map[model.ActionType]int64
	decay       float64
	decayFloor  float64
}

// NewTableValuer creates a valuer with configuration options.
func NewTableValuer(opts ...Option) *TableValuer {
	v := &TableValuer{
		baseAmounts: defaultBaseAmounts(),
		decay:       defaultDecay,
		decayFloor:  defaultDecayFloor,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Value computes the XP amounts for the given input.
func (v *TableValuer) Value(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if !model.KnownAction(in.Action) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAction, in.Action)
	}

	raw, ok := v.baseAmounts[in.Action]
	if !ok {
		raw = defaultAmount
	}

	amount := raw
	if decaying(in.Action) && in.PriorInSession > 0 {
		mult := math.Pow(v.decay, float64(in.PriorInSession))
		if mult < v.decayFloor {
			mult = v.decayFloor
		}
		amount = int64(math.Round(float64(raw) * mult))
		if amount < 1 {
			amount = 1
		}
	}

	return Result{RawAmount: raw, Amount: amount}, nil
}

// decaying reports whether an action is subject to in-session
// diminishing returns. Login and publication are once-per-day or
// deliberate actions and keep their full value.
func decaying(action model.ActionType) bool {
	switch action {
	case model.ActionScanIngredient, model.ActionRateRecipe:
		return true
	default:
		return false
	}
}
