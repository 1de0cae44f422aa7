package syllabus

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type AnalysisRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.SyllabusAnalysis) (*types.SyllabusAnalysis, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.SyllabusAnalysis, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SyllabusAnalysis, error)
	CountByHash(ctx context.Context, tx *gorm.DB, userID uuid.UUID, hash string) (int64, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (bool, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	repoLog := baseLog.With("repo", "AnalysisRepo")
	return &analysisRepo{db: db, log: repoLog}
}

func (r *analysisRepo) Create(ctx context.Context, tx *gorm.DB, a *types.SyllabusAnalysis) (*types.SyllabusAnalysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil {
		return nil, errors.New("nil analysis")
	}
	if err := transaction.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID returns nil, nil when the row does not exist or belongs to another user.
func (r *analysisRepo) GetByID(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (*types.SyllabusAnalysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.SyllabusAnalysis
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

func (r *analysisRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.SyllabusAnalysis, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.SyllabusAnalysis
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analysisRepo) CountByHash(ctx context.Context, tx *gorm.DB, userID uuid.UUID, hash string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.SyllabusAnalysis{}).
		Where("user_id = ? AND content_hash = ?", userID, hash).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *analysisRepo) SoftDelete(ctx context.Context, tx *gorm.DB, userID, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.SyllabusAnalysis{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
