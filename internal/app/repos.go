package app

import (
	"gorm.io/gorm"

	"github.com/univento/leaderboard-service/internal/logger"
	"github.com/univento/leaderboard-service/internal/repos"
)

type Repos struct {
	ScoreEntry repos.ScoreEntryRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ScoreEntry: repos.NewScoreEntryRepo(db, log),
	}
}
