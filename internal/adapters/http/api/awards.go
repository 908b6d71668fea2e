// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/ladle/internal/app"
	"github.com/okian/ladle/internal/domain/model"
)

// AwardDependencies defines the interface for award processing.
type AwardDependencies interface {
	AwardXP(ctx context.Context, req service.AwardRequest) (model.ProgressionResult, error)
}

// AwardsHandler handles award requests.
type AwardsHandler struct {
	deps AwardDependencies
}

// NewAwardsHandler creates a new awards handler.
func NewAwardsHandler(deps AwardDependencies) *AwardsHandler {
	return &AwardsHandler{deps: deps}
}

// HandlePostAward handles POST /awards requests. The response carries the
// consolidated progression delta; replays of an already-applied
// idempotency key return the original result with duplicate set.
func (h *AwardsHandler) HandlePostAward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var at time.Time
	if req.OccurredAt != "" {
		// validate() already checked the format.
		at, _ = time.Parse(time.RFC3339, req.OccurredAt)
	}

	result, err := h.deps.AwardXP(r.Context(), service.AwardRequest{
		UserID:         req.UserID,
		Action:         model.ActionType(req.Action),
		IdempotencyKey: req.IdempotencyKey,
		SessionID:      req.SessionID,
		Timezone:       req.Timezone,
		OccurredAt:     at,
	})
	if err != nil {
		writeAwardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
