package syllabus

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyllabusAnalysis is a persisted, normalized topic tree for one uploaded syllabus.
type SyllabusAnalysis struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename        string         `gorm:"column:filename;not null" json:"filename"`
	ContentHash     string         `gorm:"column:content_hash;not null;index" json:"content_hash"`
	Provider        string         `gorm:"column:provider;not null" json:"provider"`
	Topics          datatypes.JSON `gorm:"column:topics;type:jsonb;not null" json:"topics"`
	PriorityTopics  datatypes.JSON `gorm:"column:priority_topics;type:jsonb;not null" json:"priority_topics"`
	TotalStudyHours *float64       `gorm:"column:total_study_hours" json:"total_study_hours"`
	DroppedNodes    datatypes.JSON `gorm:"column:dropped_nodes;type:jsonb" json:"dropped_nodes,omitempty"`
	Version         int            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SyllabusAnalysis) TableName() string { return "syllabus_analysis" }

func (a *SyllabusAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
