// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/ladle/internal/adapters/leaderboard"
	"github.com/okian/ladle/internal/domain/types"
)

// RankDependencies defines the interface for rank reads.
type RankDependencies interface {
	RankOf(ctx context.Context, window types.Window, userID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{user_id}?window=W requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathParam(r, "/rank/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
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

	entry, err := h.deps.RankOf(r.Context(), window, userID)
	if err != nil {
		if errors.Is(err, leaderboard.ErrNotRanked) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
