package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
)

const sampleTopics = `[{"name":"Limits","importance":"High","estimated_hours":2,"completed":false,"subtopics":[]}]`

func SeedAnalysis(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, hash string) *syllabus.SyllabusAnalysis {
	tb.Helper()
	total := 2.0
	a := &syllabus.SyllabusAnalysis{
		ID:              uuid.New(),
		UserID:          userID,
		Filename:        "syllabus.pdf",
		ContentHash:     hash,
		Provider:        "outline",
		Topics:          datatypes.JSON([]byte(sampleTopics)),
		PriorityTopics:  datatypes.JSON([]byte(sampleTopics)),
		TotalStudyHours: &total,
		Version:         1,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed analysis: %v", err)
	}
	return a
}

func SeedStudyPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, analysisID *uuid.UUID) *syllabus.StudyPlan {
	tb.Helper()
	p := &syllabus.StudyPlan{
		ID:             uuid.New(),
		UserID:         userID,
		AnalysisID:     analysisID,
		Title:          "plan",
		StartDate:      "2024-01-01",
		DailyHours:     2,
		DaysOff:        datatypes.JSON([]byte("[]")),
		Topics:         datatypes.JSON([]byte(sampleTopics)),
		CompletionDate: "2024-01-01",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed study plan: %v", err)
	}
	return p
}
