package syllabus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/blueprintx-backend/internal/data/repos/testutil"
	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
)

func TestAnalysisRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewAnalysisRepo(db, testutil.Logger(t))
	ctx := context.Background()
	userID := uuid.New()
	otherUser := uuid.New()

	first := testutil.SeedAnalysis(t, ctx, tx, userID, "hash-a")
	first.CreatedAt = time.Now().Add(-time.Hour)
	if err := tx.Save(first).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	created, err := repo.Create(ctx, tx, &types.SyllabusAnalysis{
		UserID:         userID,
		Filename:       "notes.md",
		ContentHash:    "hash-a",
		Provider:       "groq",
		Topics:         datatypes.JSON([]byte(`[]`)),
		PriorityTopics: datatypes.JSON([]byte(`[]`)),
		Version:        2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create: expected id to be assigned")
	}

	got, err := repo.GetByID(ctx, tx, userID, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Filename != "notes.md" || got.TotalStudyHours != nil {
		t.Fatalf("GetByID: unexpected %+v", got)
	}

	got, err = repo.GetByID(ctx, tx, otherUser, created.ID)
	if err != nil {
		t.Fatalf("GetByID other user: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID: expected nil for foreign user, got %+v", got)
	}

	list, err := repo.ListByUser(ctx, tx, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != created.ID || list[1].ID != first.ID {
		t.Fatalf("ListByUser: expected newest first, got %d rows", len(list))
	}

	n, err := repo.CountByHash(ctx, tx, userID, "hash-a")
	if err != nil {
		t.Fatalf("CountByHash: %v", err)
	}
	if n != 2 {
		t.Fatalf("CountByHash: expected 2, got %d", n)
	}

	ok, err := repo.SoftDelete(ctx, tx, otherUser, created.ID)
	if err != nil || ok {
		t.Fatalf("SoftDelete foreign: ok=%v err=%v", ok, err)
	}
	ok, err = repo.SoftDelete(ctx, tx, userID, created.ID)
	if err != nil || !ok {
		t.Fatalf("SoftDelete: ok=%v err=%v", ok, err)
	}
	got, err = repo.GetByID(ctx, tx, userID, created.ID)
	if err != nil {
		t.Fatalf("GetByID after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByID: expected deleted row to be hidden")
	}
}
