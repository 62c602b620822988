package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/repos"
	"github.com/univento/leaderboard-service/internal/types"
)

// TopLimit caps both cross-event aggregate views.
const TopLimit = 20

// CollegeKeyFunc maps a stored college string to its grouping key. The
// default groups by the exact string. Swapping in a normalizing key (fold,
// trim) changes grouping without touching the aggregation contract.
type CollegeKeyFunc func(college string) string

func ExactCollegeKey(college string) string { return college }

// AggregationService builds the cross-event views. Read-only: it walks the
// current ledger on every call and stores nothing.
type AggregationService interface {
	GetTopPerformers(ctx context.Context) ([]*types.TopPerformer, error)
	GetCollegeLeaderboard(ctx context.Context) ([]*types.CollegeStanding, error)
}

type aggregationService struct {
	log        *logger.Logger
	entries    repos.ScoreEntryRepo
	collegeKey CollegeKeyFunc
}

func NewAggregationService(log *logger.Logger, entries repos.ScoreEntryRepo, collegeKey CollegeKeyFunc) AggregationService {
	if collegeKey == nil {
		collegeKey = ExactCollegeKey
	}
	serviceLog := log.With("service", "AggregationService")
	return &aggregationService{log: serviceLog, entries: entries, collegeKey: collegeKey}
}

func (s *aggregationService) GetTopPerformers(ctx context.Context) ([]*types.TopPerformer, error) {
	entries, err := s.entries.ListAll(ctx, nil)
	if err != nil {
		s.log.Error("Failed to list ledger for top performers", "error", err)
		return nil, apierr.Internal(fmt.Errorf("list ledger: %w", err))
	}

	byUser := make(map[uuid.UUID]*types.TopPerformer)
	seenAchievements := make(map[uuid.UUID]map[string]bool)
	var order []uuid.UUID

	for _, entry := range entries {
		perf, ok := byUser[entry.UserID]
		if !ok {
			// userName/college come from the first entry encountered.
			perf = &types.TopPerformer{
				UserID:       entry.UserID,
				UserName:     entry.UserName,
				College:      entry.College,
				Achievements: []string{},
			}
			byUser[entry.UserID] = perf
			seenAchievements[entry.UserID] = make(map[string]bool)
			order = append(order, entry.UserID)
		}
		perf.TotalScore += entry.Score
		perf.EventCount++
		for _, a := range entry.Achievements {
			if !seenAchievements[entry.UserID][a] {
				seenAchievements[entry.UserID][a] = true
				perf.Achievements = append(perf.Achievements, a)
			}
		}
	}

	performers := make([]*types.TopPerformer, 0, len(order))
	for _, userID := range order {
		performers = append(performers, byUser[userID])
	}
	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].TotalScore > performers[j].TotalScore
	})
	if len(performers) > TopLimit {
		performers = performers[:TopLimit]
	}
	return performers, nil
}

func (s *aggregationService) GetCollegeLeaderboard(ctx context.Context) ([]*types.CollegeStanding, error) {
	entries, err := s.entries.ListAll(ctx, nil)
	if err != nil {
		s.log.Error("Failed to list ledger for college leaderboard", "error", err)
		return nil, apierr.Internal(fmt.Errorf("list ledger: %w", err))
	}

	type collegeAgg struct {
		standing *types.CollegeStanding
		users    map[uuid.UUID]bool
		events   map[uuid.UUID]bool
	}
	byCollege := make(map[string]*collegeAgg)
	var order []string

	for _, entry := range entries {
		if entry.College == "" {
			continue
		}
		key := s.collegeKey(entry.College)
		agg, ok := byCollege[key]
		if !ok {
			agg = &collegeAgg{
				standing: &types.CollegeStanding{College: entry.College},
				users:    make(map[uuid.UUID]bool),
				events:   make(map[uuid.UUID]bool),
			}
			byCollege[key] = agg
			order = append(order, key)
		}
		agg.standing.TotalScore += entry.Score
		agg.users[entry.UserID] = true
		agg.events[entry.EventID] = true
	}

	standings := make([]*types.CollegeStanding, 0, len(order))
	for _, key := range order {
		agg := byCollege[key]
		agg.standing.ParticipantCount = len(agg.users)
		agg.standing.EventCount = len(agg.events)
		standings = append(standings, agg.standing)
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].TotalScore > standings[j].TotalScore
	})
	if len(standings) > TopLimit {
		standings = standings[:TopLimit]
	}
	return standings, nil
}
