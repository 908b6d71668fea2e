// Package streak implements the consecutive-active-day state machine.
//
// The tracker never reads the wall clock: it compares the event
// timestamp against the stored last-active date, both interpreted in
// the user's reference timezone supplied by the caller.
package streak

import (
	"time"
)

// Result describes one streak transition.
type Result struct {
	Days    int // current streak after the transition
	Longest int // longest streak after the transition

	Same     bool // action fell on the already-recorded active day
	Extended bool // streak continued to the next day
	Reset    bool // gap exceeded the grace period; streak restarted at 1
}

// Advance computes the streak transition for an action at `at`.
//
// Same calendar day: no change. Exactly one day later (or within the
// grace period): streak +1. Beyond 1+grace days: streak resets to 1,
// the triggering action counting as day one. A zero lastActive starts
// a new streak at 1. Timestamps earlier than lastActive are treated as
// same-day re-triggers so the streak never moves backwards.
func Advance(lastActive time.Time, current, longest int, at time.Time, loc *time.Location, graceDays int) Result {
	if loc == nil {
		loc = time.UTC
	}
	if graceDays < 0 {
		graceDays = 0
	}

	out := Result{Days: current, Longest: longest}

	if lastActive.IsZero() {
		out.Days = 1
		if out.Longest < 1 {
			out.Longest = 1
		}
		return out
	}

	gap := daysBetween(lastActive, at, loc)
	switch {
	case gap <= 0:
		out.Same = true
	case gap <= 1+graceDays:
		out.Days = current + 1
		out.Extended = true
	default:
		out.Days = 1
		out.Reset = true
	}

	if out.Days > out.Longest {
		out.Longest = out.Days
	}
	return out
}

// daysBetween returns the number of calendar-day boundaries crossed
// between a and b in loc. Negative when b precedes a.
func daysBetween(a, b time.Time, loc *time.Location) int {
	da := dateOf(a, loc)
	db := dateOf(b, loc)
	return int(db.Sub(da).Hours() / 24)
}

// dateOf truncates t to midnight of its calendar day in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
