package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/types"
)

// ScoreEntryRepo is the score ledger. It is the only component that touches
// the score_entries table; services mutate it exclusively through the score
// service. There is deliberately no delete: entries are immutable once
// created apart from additive updates.
type ScoreEntryRepo interface {
	GetByEventAndUser(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error)
	// GetByEventAndUserLocked reads the entry under a row lock
	// (SELECT ... FOR UPDATE). Only meaningful inside a transaction; it
	// serializes the read-merge-write of achievements across instances.
	GetByEventAndUserLocked(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error)
	// GetAnyByUser returns the user's earliest entry that carries a
	// non-empty college, for keeping a participant's college consistent
	// across the events they join.
	GetAnyByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ScoreEntry, error)
	ListByEvent(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, limit int) ([]*types.ScoreEntry, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoreEntry, error)
	Create(ctx context.Context, tx *gorm.DB, entry *types.ScoreEntry) error
	// AddScore increments the stored score in a single UPDATE statement so
	// concurrent increments from any number of processes never lose points.
	AddScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) error
	SetAchievements(ctx context.Context, tx *gorm.DB, id uuid.UUID, achievements []string) error
	SetRank(ctx context.Context, tx *gorm.DB, id uuid.UUID, rank int) error
	CountHigherScores(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, score int64) (int64, error)
}

type scoreEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreEntryRepo(db *gorm.DB, baseLog *logger.Logger) ScoreEntryRepo {
	repoLog := baseLog.With("repo", "ScoreEntryRepo")
	return &scoreEntryRepo{db: db, log: repoLog}
}

func (r *scoreEntryRepo) GetByEventAndUser(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry types.ScoreEntry
	if err := transaction.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scoreEntryRepo) GetByEventAndUserLocked(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry types.ScoreEntry
	if err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scoreEntryRepo) GetAnyByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var entry types.ScoreEntry
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND college <> ''", userID).
		Order("created_at ASC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scoreEntryRepo) ListByEvent(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, limit int) ([]*types.ScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ScoreEntry
	q := transaction.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("score DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scoreEntryRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoreEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ScoreEntry
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *scoreEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.ScoreEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if entry == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *scoreEntryRepo) AddScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ScoreEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":        gorm.Expr("score + ?", points),
			"last_updated": time.Now().UTC(),
		}).Error
}

func (r *scoreEntryRepo) SetAchievements(ctx context.Context, tx *gorm.DB, id uuid.UUID, achievements []string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.ScoreEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"achievements": datatypes.NewJSONSlice(achievements),
			"last_updated": time.Now().UTC(),
		}).Error
}

func (r *scoreEntryRepo) SetRank(ctx context.Context, tx *gorm.DB, id uuid.UUID, rank int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Rank is advisory; it does not refresh last_updated.
	return transaction.WithContext(ctx).
		Model(&types.ScoreEntry{}).
		Where("id = ?", id).
		Update("rank", rank).Error
}

func (r *scoreEntryRepo) CountHigherScores(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, score int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ScoreEntry{}).
		Where("event_id = ? AND score > ?", eventID, score).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
