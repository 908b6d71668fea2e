// Package leaderboard maintains ranked views of users by XP over time
// windows.
//
// The board is never updated synchronously with an award: it consumes
// eventually-consistent rank notices and serves reads from immutable,
// periodically rebuilt snapshots. A read always comes from exactly one
// snapshot, so concurrent writes can never produce duplicate or
// missing ranks within a page.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/internal/domain/types"
	"github.com/okian/ladle/pkg/metrics"
)

// entrant is the accumulated window state for one user.
type entrant struct {
	xp        int64
	reachedAt time.Time // when the current xp total was reached
}

// window holds one time window's entrants and its materialized snapshot.
type window struct {
	periodKey string
	entrants  map[string]*entrant
	dirty     bool

	// snapshot is immutable once built; readers hold it without locks.
	snapshot []types.Entry
	rankByID map[string]int
}

func newWindow() *window {
	return &window{
		entrants: make(map[string]*entrant),
		rankByID: make(map[string]int),
	}
}

// Board implements the leaderboard ranker.
type Board struct {
	mu      sync.RWMutex
	windows map[types.Window]*window
}

// NewBoard creates an empty board covering all supported windows.
func NewBoard(ctx context.Context) *Board {
	b := &Board{windows: make(map[types.Window]*window)}
	for _, w := range []types.Window{types.WindowDaily, types.WindowWeekly, types.WindowAllTime} {
		b.windows[w] = newWindow()
	}
	return b
}

// Apply folds one rank notice into every window. Rolling windows reset
// when a notice from a newer period arrives; stale notices from a past
// period are ignored for rolling windows.
func (b *Board) Apply(ctx context.Context, n model.RankNotice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, w := range b.windows {
		key := periodKey(id, n.OccurredAt)
		if key != w.periodKey {
			if key < w.periodKey {
				continue // late notice from a closed period
			}
			w.periodKey = key
			w.entrants = make(map[string]*entrant)
		}

		e, ok := w.entrants[n.UserID]
		if !ok {
			e = &entrant{}
			w.entrants[n.UserID] = e
		}

		switch id {
		case types.WindowAllTime:
			// The committed total is authoritative; notices may arrive
			// out of order, so only ever move the total forward.
			if n.NewTotal > e.xp {
				e.xp = n.NewTotal
				e.reachedAt = n.OccurredAt
			}
		default:
			if n.Delta > 0 {
				e.xp += n.Delta
				e.reachedAt = n.OccurredAt
			}
		}
		w.dirty = true
	}
}

// Page returns one page of the window's current snapshot, rebuilding it
// first if notices arrived since the last build. Pages are 1-based.
func (b *Board) Page(ctx context.Context, id types.Window, page, perPage int) ([]types.Entry, error) {
	if !types.KnownWindow(id) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWindow, id)
	}
	if page < 1 || perPage < 1 {
		return nil, ErrInvalidPage
	}

	snapshot := b.currentSnapshot(id)

	start := (page - 1) * perPage
	if start >= len(snapshot) {
		return []types.Entry{}, nil
	}
	end := start + perPage
	if end > len(snapshot) {
		end = len(snapshot)
	}

	out := make([]types.Entry, end-start)
	copy(out, snapshot[start:end])
	return out, nil
}

// Rank returns the entry for one user in a window.
// Returns ErrNotRanked when the user has no XP in the window.
func (b *Board) Rank(ctx context.Context, id types.Window, userID string) (types.Entry, error) {
	if !types.KnownWindow(id) {
		return types.Entry{}, fmt.Errorf("%w: %s", ErrUnknownWindow, id)
	}

	b.currentSnapshot(id) // ensure the snapshot is fresh

	// Take the snapshot and its rank index under one lock so they are
	// guaranteed to describe the same build.
	b.mu.RLock()
	w := b.windows[id]
	snapshot, rankByID := w.snapshot, w.rankByID
	b.mu.RUnlock()

	rank, ok := rankByID[userID]
	if !ok {
		return types.Entry{}, ErrNotRanked
	}
	return snapshot[rank-1], nil
}

// Count returns the number of ranked users in a window.
func (b *Board) Count(ctx context.Context, id types.Window) int {
	return len(b.currentSnapshot(id))
}

// Rebuild forces a rebuild of every dirty window. The service calls
// this on an interval so snapshots stay bounded-stale even without
// reads.
func (b *Board) Rebuild(ctx context.Context) {
	for id := range b.windows {
		b.currentSnapshot(id)
	}
}

// currentSnapshot returns the window's snapshot, rebuilding when dirty.
func (b *Board) currentSnapshot(id types.Window) []types.Entry {
	b.mu.RLock()
	w := b.windows[id]
	if !w.dirty {
		snap := w.snapshot
		b.mu.RUnlock()
		return snap
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if !w.dirty { // another reader rebuilt while we waited
		return w.snapshot
	}

	start := time.Now()

	entries := make([]types.Entry, 0, len(w.entrants))
	for userID, e := range w.entrants {
		entries = append(entries, types.Entry{
			UserID:    userID,
			XP:        e.xp,
			ReachedAt: e.reachedAt,
		})
	}
	// Order: XP desc, first-to-reach wins ties, then user id for
	// determinism.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		if !entries[i].ReachedAt.Equal(entries[j].ReachedAt) {
			return entries[i].ReachedAt.Before(entries[j].ReachedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})

	rankByID := make(map[string]int, len(entries))
	for i := range entries {
		entries[i].Rank = i + 1
		rankByID[entries[i].UserID] = i + 1
	}

	w.snapshot = entries
	w.rankByID = rankByID
	w.dirty = false

	metrics.RecordSnapshotRebuild(float64(time.Since(start).Microseconds()) / 1000.0)

	return w.snapshot
}

// periodKey buckets a timestamp into a window period. Keys compare
// lexicographically in chronological order.
func periodKey(id types.Window, t time.Time) string {
	switch id {
	case types.WindowDaily:
		return t.UTC().Format("2006-01-02")
	case types.WindowWeekly:
		year, week := t.UTC().ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return ""
	}
}
