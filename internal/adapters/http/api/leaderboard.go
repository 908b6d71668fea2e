// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/ladle/internal/adapters/leaderboard"
	"github.com/okian/ladle/internal/domain/types"
)

// Leaderboard paging defaults.
const (
	defaultPage    = 1
	defaultPerPage = 20
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, window types.Window, page, perPage int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps       LeaderboardDependencies
	maxPerPage int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxPerPage int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:       deps,
		maxPerPage: maxPerPage,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?window=W&page=N&per_page=M.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	window := types.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = types.WindowAllTime
	}
	if !types.KnownWindow(window) {
		writeError(w, http.StatusBadRequest, "bad_request", leaderboard.ErrUnknownWindow)
		return
	}

	page, err := queryInt(r, "page", defaultPage)
	if err != nil || page < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	perPage, err := queryInt(r, "per_page", defaultPerPage)
	if err != nil || perPage < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if perPage > h.maxPerPage {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), window, page, perPage)
	if err != nil {
		if errors.Is(err, leaderboard.ErrInvalidPage) || errors.Is(err, leaderboard.ErrUnknownWindow) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
