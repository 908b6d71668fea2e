// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/ladle/internal/domain/types"
)

// AchievementDependencies defines the interface for achievement reads.
type AchievementDependencies interface {
	Achievements(ctx context.Context, userID string) []types.AchievementStatus
}

// AchievementsHandler handles achievement list requests.
type AchievementsHandler struct {
	deps AchievementDependencies
}

// NewAchievementsHandler creates a new achievements handler.
func NewAchievementsHandler(deps AchievementDependencies) *AchievementsHandler {
	return &AchievementsHandler{deps: deps}
}

// HandleGetAchievements handles GET /achievements/{user_id} requests.
// Unknown users get the full registry with zero progress, so clients can
// render the achievement catalog before the first award.
func (h *AchievementsHandler) HandleGetAchievements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathParam(r, "/achievements/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Achievements(r.Context(), userID))
}
