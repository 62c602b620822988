package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/sse"
	"github.com/univento/leaderboard-service/internal/types"
)

// fakeLedger is an in-memory ScoreEntryRepo honoring the repo contract:
// unique (event, user) pairs, atomic AddScore, not-found and duplicate-key
// errors matching the gorm-translated ones.
type fakeLedger struct {
	mu      sync.Mutex
	seq     int64
	base    time.Time
	entries map[uuid.UUID]*types.ScoreEntry

	// onCreate, when set, runs under the lock before the uniqueness check.
	// Tests use it to sneak in a competing insert.
	onCreate func(l *fakeLedger, e *types.ScoreEntry)

	lockedReads int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		base:    time.Now().UTC(),
		entries: make(map[uuid.UUID]*types.ScoreEntry),
	}
}

func copyEntry(e *types.ScoreEntry) *types.ScoreEntry {
	cp := *e
	cp.Achievements = append([]string(nil), e.Achievements...)
	return &cp
}

func (l *fakeLedger) nextTime() time.Time {
	l.seq++
	return l.base.Add(time.Duration(l.seq) * time.Millisecond)
}

// unsafeInsert adds an entry without the uniqueness check. Caller holds the lock.
func (l *fakeLedger) unsafeInsert(e *types.ScoreEntry) {
	cp := copyEntry(e)
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = l.nextTime()
	l.entries[cp.ID] = cp
}

func (l *fakeLedger) GetByEventAndUser(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.EventID == eventID && e.UserID == userID {
			return copyEntry(e), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (l *fakeLedger) GetByEventAndUserLocked(ctx context.Context, tx *gorm.DB, eventID, userID uuid.UUID) (*types.ScoreEntry, error) {
	l.mu.Lock()
	l.lockedReads++
	l.mu.Unlock()
	return l.GetByEventAndUser(ctx, tx, eventID, userID)
}

func (l *fakeLedger) GetAnyByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.ScoreEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var found *types.ScoreEntry
	for _, e := range l.entries {
		if e.UserID != userID || e.College == "" {
			continue
		}
		if found == nil || e.CreatedAt.Before(found.CreatedAt) {
			found = e
		}
	}
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copyEntry(found), nil
}

func (l *fakeLedger) ListByEvent(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, limit int) ([]*types.ScoreEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*types.ScoreEntry
	for _, e := range l.entries {
		if e.EventID == eventID {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *fakeLedger) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ScoreEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*types.ScoreEntry
	for _, e := range l.entries {
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *fakeLedger) Create(ctx context.Context, tx *gorm.DB, entry *types.ScoreEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.onCreate != nil {
		hook := l.onCreate
		l.onCreate = nil
		hook(l, entry)
	}
	for _, e := range l.entries {
		if e.EventID == entry.EventID && e.UserID == entry.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := copyEntry(entry)
	cp.CreatedAt = l.nextTime()
	l.entries[cp.ID] = cp
	entry.CreatedAt = cp.CreatedAt
	return nil
}

func (l *fakeLedger) AddScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, points int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Score += points
	e.LastUpdated = time.Now().UTC()
	return nil
}

func (l *fakeLedger) SetAchievements(ctx context.Context, tx *gorm.DB, id uuid.UUID, achievements []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Achievements = append([]string(nil), achievements...)
	e.LastUpdated = time.Now().UTC()
	return nil
}

func (l *fakeLedger) SetRank(ctx context.Context, tx *gorm.DB, id uuid.UUID, rank int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Rank = rank
	return nil
}

func (l *fakeLedger) CountHigherScores(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, score int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var count int64
	for _, e := range l.entries {
		if e.EventID == eventID && e.Score > score {
			count++
		}
	}
	return count, nil
}

func (l *fakeLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *fakeLedger) lockedReadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedReads
}

// captureEmitter records what the score service publishes.
type captureEmitter struct {
	mu   sync.Mutex
	msgs []sse.SSEMessage
}

func (e *captureEmitter) Emit(ctx context.Context, msg sse.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *captureEmitter) messages() []sse.SSEMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sse.SSEMessage(nil), e.msgs...)
}
