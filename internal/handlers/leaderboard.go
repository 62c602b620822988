package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/services"
)

type LeaderboardHandler struct {
	scores      services.ScoreService
	leaderboard services.LeaderboardService
	aggregation services.AggregationService
}

func NewLeaderboardHandler(scores services.ScoreService, leaderboard services.LeaderboardService, aggregation services.AggregationService) *LeaderboardHandler {
	return &LeaderboardHandler{
		scores:      scores,
		leaderboard: leaderboard,
		aggregation: aggregation,
	}
}

// UpdateScoreRequest is the typed body of PUT /event/:eventId/user/:userId.
type UpdateScoreRequest struct {
	Points       *int64   `json:"points"`
	Achievements []string `json:"achievements"`
	UserName     string   `json:"userName"`
	College      string   `json:"college"`
}

// GET /api/leaderboard/event/:eventId
//
// Ranks here are positional (1..N over the sorted page), so tied scores
// get distinct numbers. The per-participant endpoint below uses the
// count-based rank instead; the two disagree on ties by design.
func (h *LeaderboardHandler) GetEventLeaderboard(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid event id"))
		return
	}

	entries, err := h.leaderboard.GetEventLeaderboard(c.Request.Context(), eventID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOKWithCount(c, len(entries), entries)
}

// GET /api/leaderboard/event/:eventId/user/:userId
func (h *LeaderboardHandler) GetParticipantScore(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid event id"))
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid user id"))
		return
	}

	entry, err := h.leaderboard.GetParticipantScore(c.Request.Context(), eventID, userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, entry)
}

// PUT /api/leaderboard/event/:eventId/user/:userId
func (h *LeaderboardHandler) UpdateParticipantScore(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid event id"))
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		RespondError(c, apierr.Validation("invalid user id"))
		return
	}

	var req UpdateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid request body"))
		return
	}

	entry, err := h.scores.ApplyScoreUpdate(c.Request.Context(), services.ScoreUpdateInput{
		EventID:      eventID,
		UserID:       userID,
		Points:       req.Points,
		Achievements: req.Achievements,
		UserName:     req.UserName,
		College:      req.College,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondMessage(c, "Score updated successfully", entry)
}

// GET /api/leaderboard/top
func (h *LeaderboardHandler) GetTopPerformers(c *gin.Context) {
	performers, err := h.aggregation.GetTopPerformers(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOKWithCount(c, len(performers), performers)
}

// GET /api/leaderboard/colleges
func (h *LeaderboardHandler) GetCollegeLeaderboard(c *gin.Context) {
	standings, err := h.aggregation.GetCollegeLeaderboard(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOKWithCount(c, len(standings), standings)
}
