package types

import "github.com/google/uuid"

// TopPerformer and CollegeStanding are derived views computed on demand by
// the aggregation service. They are never persisted.

type TopPerformer struct {
	UserID       uuid.UUID `json:"userId"`
	UserName     string    `json:"userName"`
	College      string    `json:"college"`
	TotalScore   int64     `json:"totalScore"`
	EventCount   int       `json:"eventCount"`
	Achievements []string  `json:"achievements"`
}

type CollegeStanding struct {
	College          string `json:"college"`
	TotalScore       int64  `json:"totalScore"`
	ParticipantCount int    `json:"participantCount"`
	EventCount       int    `json:"eventCount"`
}
