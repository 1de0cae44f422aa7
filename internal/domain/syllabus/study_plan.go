package syllabus

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudyPlan is a scheduled topic tree. Dates are stored as YYYY-MM-DD strings.
type StudyPlan struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	AnalysisID          *uuid.UUID     `gorm:"type:uuid;index" json:"analysis_id,omitempty"`
	Title               string         `gorm:"column:title;not null" json:"title"`
	StartDate           string         `gorm:"column:start_date;type:varchar(10);not null" json:"start_date"`
	DailyHours          float64        `gorm:"column:daily_hours;not null" json:"daily_hours"`
	DaysOff             datatypes.JSON `gorm:"column:days_off;type:jsonb;not null" json:"days_off"`
	Topics              datatypes.JSON `gorm:"column:topics;type:jsonb;not null" json:"topics"`
	CompletionDate      string         `gorm:"column:completion_date;type:varchar(10);not null" json:"completion_date"`
	TotalEstimatedHours *float64       `gorm:"column:total_estimated_hours" json:"total_estimated_hours"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudyPlan) TableName() string { return "study_plan" }

func (p *StudyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
