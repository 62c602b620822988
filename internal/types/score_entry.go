package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScoreEntry is the ledger record for one participant in one event.
// Exactly one entry may exist per (event_id, user_id) pair; the unique
// index backs the coordinator's conflict-retry path. Entries are never
// deleted, only grown additively.
type ScoreEntry struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	EventID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_event_user;column:event_id" json:"eventId"`
	UserID       uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_event_user;column:user_id" json:"userId"`
	UserName     string                      `gorm:"not null;column:user_name" json:"userName"`
	Score        int64                       `gorm:"not null;default:0;column:score" json:"score"`
	Rank         int                         `gorm:"not null;default:0;column:rank" json:"rank"`
	Achievements datatypes.JSONSlice[string] `gorm:"column:achievements" json:"achievements"`
	College      string                      `gorm:"column:college" json:"college"`
	LastUpdated  time.Time                   `gorm:"not null;column:last_updated" json:"lastUpdated"`
	CreatedAt    time.Time                   `gorm:"not null;column:created_at" json:"createdAt"`
}

func (ScoreEntry) TableName() string {
	return "score_entries"
}
