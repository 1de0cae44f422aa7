package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/data/repos/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/data/repos/user"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type AnalysisRepo = syllabus.AnalysisRepo
type StudyPlanRepo = syllabus.StudyPlanRepo
type UserRepo = user.UserRepo

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return syllabus.NewAnalysisRepo(db, baseLog)
}
func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
	return syllabus.NewStudyPlanRepo(db, baseLog)
}
func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}
