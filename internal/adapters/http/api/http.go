// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/ladle/internal/app"
	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/internal/domain/scoring"
	"github.com/okian/ladle/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// AwardXP applies one action event exactly once and returns the
	// consolidated delta.
	AwardXP(ctx context.Context, req service.AwardRequest) (model.ProgressionResult, error)

	// Read operations expose progression and leaderboard data.
	Progress(ctx context.Context, userID string) (types.ProgressView, error)
	Leaderboard(ctx context.Context, window types.Window, page, perPage int) ([]Entry, error)
	RankOf(ctx context.Context, window types.Window, userID string) (Entry, error)
	Achievements(ctx context.Context, userID string) []types.AchievementStatus
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	awardsHandler       *AwardsHandler
	progressHandler     *ProgressHandler
	leaderboardHandler  *LeaderboardHandler
	rankHandler         *RankHandler
	achievementsHandler *AchievementsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxPerPage int) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		awardsHandler:       NewAwardsHandler(deps),
		progressHandler:     NewProgressHandler(deps),
		leaderboardHandler:  NewLeaderboardHandler(deps, maxPerPage),
		rankHandler:         NewRankHandler(deps),
		achievementsHandler: NewAchievementsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/awards", MetricsMiddleware(s.awardsHandler.HandlePostAward, "awards"))
	mux.HandleFunc("/progress/", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/achievements/", MetricsMiddleware(s.achievementsHandler.HandleGetAchievements, "achievements"))
}

// awardRequest mirrors the wire schema for POST /awards.
type awardRequest struct {
	UserID         string `json:"user_id"`
	Action         string `json:"action"`
	IdempotencyKey string `json:"idempotency_key"`
	SessionID      string `json:"session_id"`
	Timezone       string `json:"timezone"`
	OccurredAt     string `json:"occurred_at"`
}

func (a awardRequest) validate() error {
	switch {
	case strings.TrimSpace(a.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(a.Action) == "":
		return errors.New("missing action")
	case strings.TrimSpace(a.IdempotencyKey) == "":
		return errors.New("missing idempotency_key")
	}
	if a.OccurredAt != "" {
		if _, err := time.Parse(time.RFC3339, a.OccurredAt); err != nil {
			return errors.New("invalid occurred_at; must be RFC3339")
		}
	}
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeAwardError translates orchestrator errors to HTTP statuses.
func writeAwardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, scoring.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrRetryExhausted):
		writeError(w, http.StatusServiceUnavailable, "contention", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// pathParam extracts the single path segment after prefix, e.g. the user
// id in /progress/{user_id}.
func pathParam(r *http.Request, prefix string) (string, bool) {
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		return "", false
	}
	return p, true
}
