package types

import "github.com/google/uuid"

// ScoreUpdate is the realtime message published to an event's channel after
// every successful score mutation.
type ScoreUpdate struct {
	EventID      uuid.UUID `json:"eventId"`
	UserID       uuid.UUID `json:"userId"`
	Score        int64     `json:"score"`
	Rank         int       `json:"rank"`
	Achievements []string  `json:"achievements"`
}
