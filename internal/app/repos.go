package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type Repos struct {
	Analysis  repos.AnalysisRepo
	StudyPlan repos.StudyPlanRepo
	User      repos.UserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Analysis:  repos.NewAnalysisRepo(db, log),
		StudyPlan: repos.NewStudyPlanRepo(db, log),
		User:      repos.NewUserRepo(db, log),
	}
}
