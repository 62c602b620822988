package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/repos"
	"github.com/univento/leaderboard-service/internal/types"
)

// EventLeaderboardLimit caps a single event's leaderboard view.
const EventLeaderboardLimit = 100

// LeaderboardService computes ranks within one event. Two rank notions
// coexist on purpose and must not be unified:
//
//   - GetEventLeaderboard assigns positional ranks 1..N over the sorted
//     view, so tied scores receive distinct sequential numbers (insertion
//     order breaks ties).
//   - GetParticipantScore returns the count-based rank
//     1 + |entries with a strictly greater score|, so tied scores share
//     the same rank value. This is also the form cached on the entry.
type LeaderboardService interface {
	GetEventLeaderboard(ctx context.Context, eventID uuid.UUID) ([]*types.ScoreEntry, error)
	GetParticipantScore(ctx context.Context, eventID, userID uuid.UUID) (*types.ScoreEntry, error)
}

type leaderboardService struct {
	log     *logger.Logger
	entries repos.ScoreEntryRepo
}

func NewLeaderboardService(log *logger.Logger, entries repos.ScoreEntryRepo) LeaderboardService {
	serviceLog := log.With("service", "LeaderboardService")
	return &leaderboardService{log: serviceLog, entries: entries}
}

func (s *leaderboardService) GetEventLeaderboard(ctx context.Context, eventID uuid.UUID) ([]*types.ScoreEntry, error) {
	entries, err := s.entries.ListByEvent(ctx, nil, eventID, EventLeaderboardLimit)
	if err != nil {
		s.log.Error("Failed to list event entries", "eventID", eventID, "error", err)
		return nil, apierr.Internal(fmt.Errorf("list event entries: %w", err))
	}
	for i, entry := range entries {
		entry.Rank = i + 1
	}
	return entries, nil
}

func (s *leaderboardService) GetParticipantScore(ctx context.Context, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	entry, err := s.entries.GetByEventAndUser(ctx, nil, eventID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("no score found for this participant in this event")
		}
		s.log.Error("Failed to load participant score", "eventID", eventID, "userID", userID, "error", err)
		return nil, apierr.Internal(fmt.Errorf("load participant score: %w", err))
	}

	higher, err := s.entries.CountHigherScores(ctx, nil, eventID, entry.Score)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("count higher scores: %w", err))
	}
	entry.Rank = int(higher) + 1
	return entry, nil
}
