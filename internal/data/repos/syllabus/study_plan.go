package syllabus

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type StudyPlanRepo interface {
	Create(ctx context.Context, tx *gorm.DB, p *types.StudyPlan) (*types.StudyPlan, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.StudyPlan, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StudyPlan, error)
	UpdateTopics(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID, topics datatypes.JSON) (bool, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (bool, error)
}

type studyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
	repoLog := baseLog.With("repo", "StudyPlanRepo")
	return &studyPlanRepo{db: db, log: repoLog}
}

func (r *studyPlanRepo) Create(ctx context.Context, tx *gorm.DB, p *types.StudyPlan) (*types.StudyPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if p == nil {
		return nil, errors.New("nil study plan")
	}
	if err := transaction.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *studyPlanRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.StudyPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.StudyPlan
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *studyPlanRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.StudyPlan, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.StudyPlan
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTopics replaces the stored tree. Returns false when no row matched.
func (r *studyPlanRepo) UpdateTopics(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID, topics datatypes.JSON) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.StudyPlan{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("topics", topics)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *studyPlanRepo) SoftDelete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.StudyPlan{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
