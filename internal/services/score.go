package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/apierr"
	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/repos"
	"github.com/univento/leaderboard-service/internal/sse"
	"github.com/univento/leaderboard-service/internal/types"
)

// ScoreUpdateInput is the validated, typed form of a score mutation.
// Points is a pointer so "no points supplied" and "zero points" stay
// distinguishable; neither changes the stored score.
type ScoreUpdateInput struct {
	EventID      uuid.UUID
	UserID       uuid.UUID
	Points       *int64
	Achievements []string
	UserName     string
	College      string
}

// ScoreService is the update coordinator: the only writer of the score
// ledger. Updates to the same (event, user) key are serialized; updates to
// different keys run fully in parallel. Scores only ever grow.
type ScoreService interface {
	ApplyScoreUpdate(ctx context.Context, in ScoreUpdateInput) (*types.ScoreEntry, error)
}

type scoreService struct {
	db      *gorm.DB
	log     *logger.Logger
	entries repos.ScoreEntryRepo
	emitter SSEEmitter
	locks   *keyLock
}

func NewScoreService(db *gorm.DB, log *logger.Logger, entries repos.ScoreEntryRepo, emitter SSEEmitter) ScoreService {
	serviceLog := log.With("service", "ScoreService")
	return &scoreService{
		db:      db,
		log:     serviceLog,
		entries: entries,
		emitter: emitter,
		locks:   newKeyLock(),
	}
}

func (s *scoreService) ApplyScoreUpdate(ctx context.Context, in ScoreUpdateInput) (*types.ScoreEntry, error) {
	if in.EventID == uuid.Nil || in.UserID == uuid.Nil {
		return nil, apierr.Validation("eventId and userId are required")
	}
	if in.Points != nil && *in.Points < 0 {
		return nil, apierr.Validation("points cannot be negative")
	}
	achievements := cleanAchievements(in.Achievements)

	lock := s.locks.Lock(in.EventID.String() + ":" + in.UserID.String())
	defer lock.Unlock()

	entry, err := s.entries.GetByEventAndUser(ctx, nil, in.EventID, in.UserID)
	switch {
	case err == nil:
		if entry, err = s.applyToExisting(ctx, entry, in.Points, achievements); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if entry, err = s.createEntry(ctx, in, achievements); err != nil {
			return nil, err
		}
	default:
		s.log.Error("Failed to load score entry", "eventID", in.EventID, "userID", in.UserID, "error", err)
		return nil, apierr.Internal(fmt.Errorf("load score entry: %w", err))
	}

	rank, err := s.recomputeRank(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.Rank = rank

	// Publish after the write has committed. A failed publish is an
	// accepted partial-failure state: the client observes the new score on
	// its next read.
	s.emitter.Emit(ctx, sse.SSEMessage{
		Channel: sse.EventChannel(entry.EventID),
		Event:   sse.SSEEventScoreUpdated,
		Data: types.ScoreUpdate{
			EventID:      entry.EventID,
			UserID:       entry.UserID,
			Score:        entry.Score,
			Rank:         entry.Rank,
			Achievements: entry.Achievements,
		},
	})

	return entry, nil
}

func (s *scoreService) createEntry(ctx context.Context, in ScoreUpdateInput, achievements []string) (*types.ScoreEntry, error) {
	if strings.TrimSpace(in.UserName) == "" {
		return nil, apierr.Validation("userName is required when creating a new score entry")
	}

	college, err := s.resolveCollege(ctx, in.UserID, in.College)
	if err != nil {
		return nil, err
	}

	var score int64
	if in.Points != nil {
		score = *in.Points
	}

	now := time.Now().UTC()
	entry := &types.ScoreEntry{
		ID:           uuid.New(),
		EventID:      in.EventID,
		UserID:       in.UserID,
		UserName:     strings.TrimSpace(in.UserName),
		Score:        score,
		Achievements: achievements,
		College:      college,
		LastUpdated:  now,
	}

	createErr := s.entries.Create(ctx, nil, entry)
	if createErr == nil {
		return entry, nil
	}
	if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
		s.log.Error("Failed to create score entry", "eventID", in.EventID, "userID", in.UserID, "error", createErr)
		return nil, apierr.Internal(fmt.Errorf("create score entry: %w", createErr))
	}

	// A concurrent first-time update won the insert race. Retry as an
	// update against the winner's row instead of surfacing the duplicate.
	existing, getErr := s.entries.GetByEventAndUser(ctx, nil, in.EventID, in.UserID)
	if getErr != nil {
		return nil, apierr.Internal(fmt.Errorf("reload after duplicate insert: %w", getErr))
	}
	return s.applyToExisting(ctx, existing, in.Points, achievements)
}

func (s *scoreService) applyToExisting(ctx context.Context, entry *types.ScoreEntry, points *int64, achievements []string) (*types.ScoreEntry, error) {
	var updated *types.ScoreEntry
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		// The row lock serializes the read-merge-write of achievements
		// across instances; the keyed mutex only covers this process.
		current, err := s.entries.GetByEventAndUserLocked(ctx, tx, entry.EventID, entry.UserID)
		if err != nil {
			return fmt.Errorf("lock score entry: %w", err)
		}

		if points != nil && *points > 0 {
			if err := s.entries.AddScore(ctx, tx, current.ID, *points); err != nil {
				return fmt.Errorf("increment score: %w", err)
			}
		}

		merged, grew := unionAchievements(current.Achievements, achievements)
		if grew {
			if err := s.entries.SetAchievements(ctx, tx, current.ID, merged); err != nil {
				return fmt.Errorf("merge achievements: %w", err)
			}
		}

		updated, err = s.entries.GetByEventAndUser(ctx, tx, current.EventID, current.UserID)
		if err != nil {
			return fmt.Errorf("reload score entry: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to apply score update", "entryID", entry.ID, "error", err)
		return nil, apierr.Internal(err)
	}
	return updated, nil
}

func (s *scoreService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// resolveCollege keeps a participant's college consistent across every
// event they join: an existing non-empty college anywhere in the ledger
// wins over whatever the caller supplied. The string is stored exactly as
// provided, no normalization.
func (s *scoreService) resolveCollege(ctx context.Context, userID uuid.UUID, supplied string) (string, error) {
	existing, err := s.entries.GetAnyByUser(ctx, nil, userID)
	if err == nil && existing.College != "" {
		return existing.College, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apierr.Internal(fmt.Errorf("resolve college: %w", err))
	}
	return supplied, nil
}

func (s *scoreService) recomputeRank(ctx context.Context, entry *types.ScoreEntry) (int, error) {
	higher, err := s.entries.CountHigherScores(ctx, nil, entry.EventID, entry.Score)
	if err != nil {
		return 0, apierr.Internal(fmt.Errorf("count higher scores: %w", err))
	}
	rank := int(higher) + 1
	if err := s.entries.SetRank(ctx, nil, entry.ID, rank); err != nil {
		return 0, apierr.Internal(fmt.Errorf("persist rank: %w", err))
	}
	return rank, nil
}

func cleanAchievements(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// unionAchievements appends the additions missing from current, preserving
// insertion order. The second return reports whether the set grew.
func unionAchievements(current, additions []string) ([]string, bool) {
	seen := make(map[string]bool, len(current))
	for _, a := range current {
		seen[a] = true
	}
	merged := append([]string(nil), current...)
	grew := false
	for _, a := range additions {
		if seen[a] {
			continue
		}
		seen[a] = true
		merged = append(merged, a)
		grew = true
	}
	return merged, grew
}
